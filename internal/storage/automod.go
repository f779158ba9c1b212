package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/graxinc/errutil"
)

// AutoModConfig is the per-guild moderation policy. Empty ProfanityList means
// the evaluator falls back to its built-in word list.
type AutoModConfig struct {
	GuildID             string
	SpamEnabled         bool
	ProfanityEnabled    bool
	LinksEnabled        bool
	MassPingEnabled     bool
	SpamThreshold       int
	PingThreshold       int
	ProfanityList       []string
	WhitelistedRoles    []string
	WhitelistedChannels []string
}

var automodToggleColumns = map[string]bool{
	"spam_enabled":      true,
	"profanity_enabled": true,
	"links_enabled":     true,
	"mass_ping_enabled": true,
}

var automodThresholdColumns = map[string]bool{
	"spam_threshold": true,
	"ping_threshold": true,
}

func (s *Store) GetAutoModConfig(ctx context.Context, guildID string) (AutoModConfig, error) {
	if err := s.ensureAutoModConfig(ctx, guildID); err != nil {
		return AutoModConfig{}, err
	}

	q := s.builder.
		Select("spam_enabled", "profanity_enabled", "links_enabled", "mass_ping_enabled",
			"spam_threshold", "ping_threshold", "profanity_list", "whitelisted_roles", "whitelisted_channels").
		From("automod_config").
		Where(sq.Eq{"guild_id": guildID})

	cfg := AutoModConfig{GuildID: guildID}
	var spam, profanity, links, massPing int
	var words, roles, channels sql.NullString
	err := q.QueryRowContext(ctx).Scan(
		&spam, &profanity, &links, &massPing,
		&cfg.SpamThreshold, &cfg.PingThreshold,
		&words, &roles, &channels,
	)
	if err != nil {
		return AutoModConfig{}, errutil.With(err)
	}
	cfg.SpamEnabled = spam == 1
	cfg.ProfanityEnabled = profanity == 1
	cfg.LinksEnabled = links == 1
	cfg.MassPingEnabled = massPing == 1
	if cfg.SpamThreshold < 1 {
		cfg.SpamThreshold = s.defaultSpamThreshold
	}
	if cfg.PingThreshold < 1 {
		cfg.PingThreshold = s.defaultPingThreshold
	}
	cfg.ProfanityList = splitList(words)
	cfg.WhitelistedRoles = splitList(roles)
	cfg.WhitelistedChannels = splitList(channels)
	return cfg, nil
}

func (s *Store) SetAutoModToggle(ctx context.Context, guildID, column string, enabled bool) error {
	if !automodToggleColumns[column] {
		return fmt.Errorf("storage: unknown automod toggle %q", column)
	}
	return s.updateAutoMod(ctx, guildID, column, boolToInt(enabled))
}

func (s *Store) SetAutoModThreshold(ctx context.Context, guildID, column string, value int) error {
	if !automodThresholdColumns[column] {
		return fmt.Errorf("storage: unknown automod threshold %q", column)
	}
	if value < 1 {
		return fmt.Errorf("storage: automod threshold must be at least 1, got %d", value)
	}
	return s.updateAutoMod(ctx, guildID, column, value)
}

// SetProfanityList replaces the guild word list; an empty list clears it back
// to the built-in default.
func (s *Store) SetProfanityList(ctx context.Context, guildID string, words []string) error {
	return s.updateAutoMod(ctx, guildID, "profanity_list", joinList(words))
}

func (s *Store) AddWhitelistedRole(ctx context.Context, guildID, roleID string) error {
	return s.addToList(ctx, guildID, "whitelisted_roles", roleID)
}

func (s *Store) RemoveWhitelistedRole(ctx context.Context, guildID, roleID string) error {
	return s.removeFromList(ctx, guildID, "whitelisted_roles", roleID)
}

func (s *Store) AddWhitelistedChannel(ctx context.Context, guildID, channelID string) error {
	return s.addToList(ctx, guildID, "whitelisted_channels", channelID)
}

func (s *Store) RemoveWhitelistedChannel(ctx context.Context, guildID, channelID string) error {
	return s.removeFromList(ctx, guildID, "whitelisted_channels", channelID)
}

func (s *Store) ensureAutoModConfig(ctx context.Context, guildID string) error {
	q := s.builder.
		Insert("automod_config").
		Columns("guild_id", "spam_threshold", "ping_threshold").
		Values(guildID, s.defaultSpamThreshold, s.defaultPingThreshold).
		Suffix("ON CONFLICT (guild_id) DO NOTHING")
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}
	return nil
}

func (s *Store) updateAutoMod(ctx context.Context, guildID, column string, value any) error {
	if err := s.ensureAutoModConfig(ctx, guildID); err != nil {
		return err
	}
	q := s.builder.
		Update("automod_config").
		Set(column, value).
		Where(sq.Eq{"guild_id": guildID})
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}
	return nil
}

func (s *Store) addToList(ctx context.Context, guildID, column, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.readList(ctx, guildID, column)
	if err != nil {
		return err
	}
	for _, existing := range items {
		if existing == id {
			return nil
		}
	}
	items = append(items, id)
	return s.updateAutoMod(ctx, guildID, column, joinList(items))
}

func (s *Store) removeFromList(ctx context.Context, guildID, column, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.readList(ctx, guildID, column)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, existing := range items {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	return s.updateAutoMod(ctx, guildID, column, joinList(kept))
}

func (s *Store) readList(ctx context.Context, guildID, column string) ([]string, error) {
	if err := s.ensureAutoModConfig(ctx, guildID); err != nil {
		return nil, err
	}
	var raw sql.NullString
	q := s.builder.
		Select(column).
		From("automod_config").
		Where(sq.Eq{"guild_id": guildID})
	if err := q.QueryRowContext(ctx).Scan(&raw); err != nil {
		return nil, errutil.With(err)
	}
	return splitList(raw), nil
}

func splitList(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	parts := strings.Split(raw.String, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

func joinList(items []string) any {
	clean := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			clean = append(clean, item)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return strings.Join(clean, ",")
}
