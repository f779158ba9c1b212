package storage

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/graxinc/errutil"
)

type UserLevel struct {
	GuildID       string
	UserID        string
	XP            int
	Level         int
	TotalMessages int
}

func (s *Store) GetUserLevel(ctx context.Context, guildID, userID string) (UserLevel, error) {
	if err := s.ensureUserLevel(ctx, guildID, userID); err != nil {
		return UserLevel{}, err
	}

	q := s.builder.
		Select("xp", "level", "total_messages").
		From("user_levels").
		Where(sq.Eq{"guild_id": guildID, "user_id": userID})

	ul := UserLevel{GuildID: guildID, UserID: userID}
	if err := q.QueryRowContext(ctx).Scan(&ul.XP, &ul.Level, &ul.TotalMessages); err != nil {
		return UserLevel{}, errutil.With(err)
	}
	return ul, nil
}

// UpdateUserLevel writes back xp and level and counts one more message.
func (s *Store) UpdateUserLevel(ctx context.Context, guildID, userID string, xp, level int) error {
	if err := s.ensureUserLevel(ctx, guildID, userID); err != nil {
		return err
	}
	q := s.builder.
		Update("user_levels").
		Set("xp", xp).
		Set("level", level).
		Set("total_messages", sq.Expr("total_messages + 1")).
		Where(sq.Eq{"guild_id": guildID, "user_id": userID})
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}
	return nil
}

func (s *Store) Leaderboard(ctx context.Context, guildID string, limit int) ([]UserLevel, error) {
	if limit < 1 {
		limit = 10
	}
	q := s.builder.
		Select("user_id", "xp", "level", "total_messages").
		From("user_levels").
		Where(sq.Eq{"guild_id": guildID}).
		OrderBy("xp DESC").
		Limit(uint64(limit))

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, errutil.With(err)
	}
	defer rows.Close()

	var board []UserLevel
	for rows.Next() {
		ul := UserLevel{GuildID: guildID}
		if err := rows.Scan(&ul.UserID, &ul.XP, &ul.Level, &ul.TotalMessages); err != nil {
			return nil, errutil.With(err)
		}
		board = append(board, ul)
	}
	if err := rows.Err(); err != nil {
		return nil, errutil.With(err)
	}
	return board, nil
}

func (s *Store) ensureUserLevel(ctx context.Context, guildID, userID string) error {
	q := s.builder.
		Insert("user_levels").
		Columns("guild_id", "user_id").
		Values(guildID, userID).
		Suffix("ON CONFLICT (guild_id, user_id) DO NOTHING")
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}
	return nil
}
