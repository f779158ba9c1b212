package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/graxinc/errutil"
)

// Mute records a role-based mute. UnmuteAt is nil for indefinite mutes, which
// the scheduler never sweeps.
type Mute struct {
	GuildID    string
	UserID     string
	MuteRoleID string
	UnmuteAt   *time.Time
}

func (s *Store) UpsertMute(ctx context.Context, m Mute) error {
	var unmuteAt any
	if m.UnmuteAt != nil {
		unmuteAt = m.UnmuteAt.Unix()
	}
	q := s.builder.
		Insert("muted_users").
		Columns("guild_id", "user_id", "mute_role_id", "unmute_at").
		Values(m.GuildID, m.UserID, m.MuteRoleID, unmuteAt).
		Suffix("ON CONFLICT (guild_id, user_id) DO UPDATE SET mute_role_id = excluded.mute_role_id, unmute_at = excluded.unmute_at")
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}
	return nil
}

func (s *Store) DeleteMute(ctx context.Context, guildID, userID string) error {
	q := s.builder.
		Delete("muted_users").
		Where(sq.Eq{"guild_id": guildID, "user_id": userID})
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}
	return nil
}

func (s *Store) GetMute(ctx context.Context, guildID, userID string) (*Mute, error) {
	q := s.builder.
		Select("mute_role_id", "unmute_at").
		From("muted_users").
		Where(sq.Eq{"guild_id": guildID, "user_id": userID})

	m := Mute{GuildID: guildID, UserID: userID}
	var unmuteAt sql.NullInt64
	err := q.QueryRowContext(ctx).Scan(&m.MuteRoleID, &unmuteAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errutil.With(err)
	}
	if unmuteAt.Valid {
		t := time.Unix(unmuteAt.Int64, 0)
		m.UnmuteAt = &t
	}
	return &m, nil
}

// ListDueMutes returns timed mutes whose deadline has passed.
func (s *Store) ListDueMutes(ctx context.Context, now time.Time) ([]Mute, error) {
	q := s.builder.
		Select("guild_id", "user_id", "mute_role_id", "unmute_at").
		From("muted_users").
		Where(sq.And{
			sq.NotEq{"unmute_at": nil},
			sq.LtOrEq{"unmute_at": now.Unix()},
		})

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, errutil.With(err)
	}
	defer rows.Close()

	var mutes []Mute
	for rows.Next() {
		var m Mute
		var unmuteAt int64
		if err := rows.Scan(&m.GuildID, &m.UserID, &m.MuteRoleID, &unmuteAt); err != nil {
			return nil, errutil.With(err)
		}
		t := time.Unix(unmuteAt, 0)
		m.UnmuteAt = &t
		mutes = append(mutes, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errutil.With(err)
	}
	return mutes, nil
}
