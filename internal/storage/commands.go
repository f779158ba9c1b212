package storage

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/graxinc/errutil"
)

type CustomCommand struct {
	GuildID  string
	Name     string
	Response string
}

// AddCustomCommand stores a guild command. Names are matched
// case-insensitively, so they are lowercased on the way in.
func (s *Store) AddCustomCommand(ctx context.Context, guildID, name, response string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	q := s.builder.
		Insert("custom_commands").
		Options("OR IGNORE").
		Columns("guild_id", "command_name", "command_response").
		Values(guildID, name, response)
	res, err := q.ExecContext(ctx)
	if err != nil {
		return errutil.With(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errutil.With(err)
	}
	if n == 0 {
		return ErrDuplicateCommand
	}
	return nil
}

// GetCustomCommand returns nil when the guild has no such command.
func (s *Store) GetCustomCommand(ctx context.Context, guildID, name string) (*CustomCommand, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	q := s.builder.
		Select("command_response").
		From("custom_commands").
		Where(sq.Eq{"guild_id": guildID, "command_name": name})

	cmd := CustomCommand{GuildID: guildID, Name: name}
	err := q.QueryRowContext(ctx).Scan(&cmd.Response)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errutil.With(err)
	}
	return &cmd, nil
}

func (s *Store) ListCustomCommands(ctx context.Context, guildID string) ([]CustomCommand, error) {
	q := s.builder.
		Select("command_name", "command_response").
		From("custom_commands").
		Where(sq.Eq{"guild_id": guildID}).
		OrderBy("command_name")

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, errutil.With(err)
	}
	defer rows.Close()

	var commands []CustomCommand
	for rows.Next() {
		cmd := CustomCommand{GuildID: guildID}
		if err := rows.Scan(&cmd.Name, &cmd.Response); err != nil {
			return nil, errutil.With(err)
		}
		commands = append(commands, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, errutil.With(err)
	}
	return commands, nil
}

// DeleteCustomCommand reports whether a command was actually removed.
func (s *Store) DeleteCustomCommand(ctx context.Context, guildID, name string) (bool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	q := s.builder.
		Delete("custom_commands").
		Where(sq.Eq{"guild_id": guildID, "command_name": name})
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
