package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/graxinc/errutil"
	"github.com/rs/xid"
)

type Warning struct {
	ID          string
	GuildID     string
	UserID      string
	ModeratorID string
	Reason      string
	CreatedAt   time.Time
}

func (s *Store) AddWarning(ctx context.Context, guildID, userID, moderatorID, reason string, now time.Time) (Warning, error) {
	w := Warning{
		ID:          xid.New().String(),
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Reason:      reason,
		CreatedAt:   now,
	}
	q := s.builder.
		Insert("warnings").
		Columns("id", "guild_id", "user_id", "moderator_id", "reason", "created_at").
		Values(w.ID, w.GuildID, w.UserID, w.ModeratorID, w.Reason, w.CreatedAt.Unix())
	if _, err := q.ExecContext(ctx); err != nil {
		return Warning{}, errutil.With(err)
	}
	return w, nil
}

// ListWarnings returns a user's warnings newest first.
func (s *Store) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	q := s.builder.
		Select("id", "moderator_id", "reason", "created_at").
		From("warnings").
		Where(sq.Eq{"guild_id": guildID, "user_id": userID}).
		OrderBy("created_at DESC")

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, errutil.With(err)
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		w := Warning{GuildID: guildID, UserID: userID}
		var reason sql.NullString
		var createdAt int64
		if err := rows.Scan(&w.ID, &w.ModeratorID, &reason, &createdAt); err != nil {
			return nil, errutil.With(err)
		}
		w.Reason = reason.String
		w.CreatedAt = time.Unix(createdAt, 0)
		warnings = append(warnings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, errutil.With(err)
	}
	return warnings, nil
}

// ClearWarnings removes all of a user's warnings and reports how many existed.
func (s *Store) ClearWarnings(ctx context.Context, guildID, userID string) (int, error) {
	q := s.builder.
		Delete("warnings").
		Where(sq.Eq{"guild_id": guildID, "user_id": userID})
	res, err := q.ExecContext(ctx)
	if err != nil {
		return 0, errutil.With(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errutil.With(err)
	}
	return int(n), nil
}
