package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/graxinc/errutil"
)

// ServerSettings is the per-guild feature configuration. Optional ids are nil
// when the feature is disabled; the store never hands back "" or "0".
type ServerSettings struct {
	GuildID             string
	AutoroleID          *string
	LogChannelID        *string
	SuggestionChannelID *string
	WelcomeChannelID    *string
	GoodbyeChannelID    *string
}

var settingColumns = map[string]bool{
	"autorole_id":           true,
	"log_channel_id":        true,
	"suggestion_channel_id": true,
	"welcome_channel_id":    true,
	"goodbye_channel_id":    true,
}

func (s *Store) GetServerSettings(ctx context.Context, guildID string) (ServerSettings, error) {
	if err := s.ensureServerSettings(ctx, guildID); err != nil {
		return ServerSettings{}, err
	}

	q := s.builder.
		Select("autorole_id", "log_channel_id", "suggestion_channel_id", "welcome_channel_id", "goodbye_channel_id").
		From("server_settings").
		Where(sq.Eq{"guild_id": guildID})

	settings := ServerSettings{GuildID: guildID}
	var autorole, logCh, suggestCh, welcomeCh, goodbyeCh sql.NullString
	if err := q.QueryRowContext(ctx).Scan(&autorole, &logCh, &suggestCh, &welcomeCh, &goodbyeCh); err != nil {
		return ServerSettings{}, errutil.With(err)
	}
	settings.AutoroleID = optionalID(autorole)
	settings.LogChannelID = optionalID(logCh)
	settings.SuggestionChannelID = optionalID(suggestCh)
	settings.WelcomeChannelID = optionalID(welcomeCh)
	settings.GoodbyeChannelID = optionalID(goodbyeCh)
	return settings, nil
}

// UpdateServerSetting sets or clears one optional id column. Clears are
// verified by an immediate read-back: a welcome channel that silently stays
// configured keeps greeting members, so a failed clear is an error, not a
// warning (see ErrClearNotVerified).
func (s *Store) UpdateServerSetting(ctx context.Context, guildID, column string, value *string) error {
	if !settingColumns[column] {
		return fmt.Errorf("storage: unknown setting column %q", column)
	}
	if err := s.ensureServerSettings(ctx, guildID); err != nil {
		return err
	}

	value = normalizeID(value)

	var stored any
	if value != nil {
		stored = *value
	}
	q := s.builder.
		Update("server_settings").
		Set(column, stored).
		Where(sq.Eq{"guild_id": guildID})
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}

	var readBack sql.NullString
	check := s.builder.
		Select(column).
		From("server_settings").
		Where(sq.Eq{"guild_id": guildID})
	if err := check.QueryRowContext(ctx).Scan(&readBack); err != nil {
		return errutil.With(err)
	}
	got := optionalID(readBack)
	if value == nil {
		if got != nil {
			return ErrClearNotVerified
		}
		return nil
	}
	if got == nil || *got != *value {
		return fmt.Errorf("storage: setting %s did not persist", column)
	}
	return nil
}

func (s *Store) ensureServerSettings(ctx context.Context, guildID string) error {
	q := s.builder.
		Insert("server_settings").
		Columns("guild_id").
		Values(guildID).
		Suffix("ON CONFLICT (guild_id) DO NOTHING")
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}
	return nil
}

// optionalID maps NULL and the legacy "" / "0" sentinels to nil.
func optionalID(value sql.NullString) *string {
	if !value.Valid || value.String == "" || value.String == "0" {
		return nil
	}
	id := value.String
	return &id
}

func normalizeID(value *string) *string {
	if value == nil || *value == "" || *value == "0" {
		return nil
	}
	return value
}
