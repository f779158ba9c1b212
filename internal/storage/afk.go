package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/graxinc/errutil"
)

type AFKStatus struct {
	GuildID string
	UserID  string
	Message string
	Since   time.Time
}

func (s *Store) SetAFK(ctx context.Context, guildID, userID, message string, now time.Time) error {
	q := s.builder.
		Insert("afk_users").
		Columns("guild_id", "user_id", "afk_message", "afk_since").
		Values(guildID, userID, message, now.Unix()).
		Suffix("ON CONFLICT (guild_id, user_id) DO UPDATE SET afk_message = excluded.afk_message, afk_since = excluded.afk_since")
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}
	return nil
}

// GetAFK returns nil when the user is not away.
func (s *Store) GetAFK(ctx context.Context, guildID, userID string) (*AFKStatus, error) {
	q := s.builder.
		Select("afk_message", "afk_since").
		From("afk_users").
		Where(sq.Eq{"guild_id": guildID, "user_id": userID})

	status := AFKStatus{GuildID: guildID, UserID: userID}
	var message sql.NullString
	var since int64
	err := q.QueryRowContext(ctx).Scan(&message, &since)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errutil.With(err)
	}
	status.Message = message.String
	status.Since = time.Unix(since, 0)
	return &status, nil
}

// ClearAFK reports whether the user had been away.
func (s *Store) ClearAFK(ctx context.Context, guildID, userID string) (bool, error) {
	q := s.builder.
		Delete("afk_users").
		Where(sq.Eq{"guild_id": guildID, "user_id": userID})
	res, err := q.ExecContext(ctx)
	if err != nil {
		return false, errutil.With(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errutil.With(err)
	}
	return n > 0, nil
}
