package storage

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/graxinc/errutil"
	"github.com/rs/xid"
)

type ReactionRole struct {
	ID        string
	GuildID   string
	MessageID string
	ChannelID string
	Emoji     string
	RoleID    string
}

func (s *Store) AddReactionRole(ctx context.Context, rr ReactionRole) (ReactionRole, error) {
	rr.ID = xid.New().String()
	q := s.builder.
		Insert("reaction_roles").
		Columns("id", "guild_id", "message_id", "channel_id", "emoji", "role_id").
		Values(rr.ID, rr.GuildID, rr.MessageID, rr.ChannelID, rr.Emoji, rr.RoleID)
	if _, err := q.ExecContext(ctx); err != nil {
		return ReactionRole{}, errutil.With(err)
	}
	return rr, nil
}

func (s *Store) ListReactionRoles(ctx context.Context, guildID, messageID string) ([]ReactionRole, error) {
	q := s.builder.
		Select("id", "channel_id", "emoji", "role_id").
		From("reaction_roles").
		Where(sq.Eq{"guild_id": guildID, "message_id": messageID})

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, errutil.With(err)
	}
	defer rows.Close()

	var bindings []ReactionRole
	for rows.Next() {
		rr := ReactionRole{GuildID: guildID, MessageID: messageID}
		if err := rows.Scan(&rr.ID, &rr.ChannelID, &rr.Emoji, &rr.RoleID); err != nil {
			return nil, errutil.With(err)
		}
		bindings = append(bindings, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, errutil.With(err)
	}
	return bindings, nil
}

// RemoveReactionRole deletes every binding of the emoji on the message and
// reports whether any existed.
func (s *Store) RemoveReactionRole(ctx context.Context, guildID, messageID, emoji string) (bool, error) {
	q := s.builder.
		Delete("reaction_roles").
		Where(sq.Eq{"guild_id": guildID, "message_id": messageID, "emoji": emoji})
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
