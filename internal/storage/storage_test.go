package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func strptr(v string) *string { return &v }

func TestServerSettingsDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	settings, err := s.GetServerSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("GetServerSettings: %v", err)
	}
	if settings.GuildID != "g1" {
		t.Fatalf("guild id = %q", settings.GuildID)
	}
	if settings.AutoroleID != nil || settings.WelcomeChannelID != nil {
		t.Fatalf("expected unset optionals, got %+v", settings)
	}

	// A second read must not create a second row or change anything.
	again, err := s.GetServerSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("GetServerSettings again: %v", err)
	}
	if again != settings {
		t.Fatalf("settings changed between reads: %+v vs %+v", settings, again)
	}
}

func TestUpdateServerSettingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpdateServerSetting(ctx, "g1", "welcome_channel_id", strptr("12345")); err != nil {
		t.Fatalf("set: %v", err)
	}
	settings, err := s.GetServerSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("GetServerSettings: %v", err)
	}
	if settings.WelcomeChannelID == nil || *settings.WelcomeChannelID != "12345" {
		t.Fatalf("welcome channel = %v", settings.WelcomeChannelID)
	}

	if err := s.UpdateServerSetting(ctx, "g1", "welcome_channel_id", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	settings, err = s.GetServerSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("GetServerSettings after clear: %v", err)
	}
	if settings.WelcomeChannelID != nil {
		t.Fatalf("welcome channel still set after clear: %v", *settings.WelcomeChannelID)
	}
}

func TestUpdateServerSettingNormalizesSentinels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// "" and "0" are legacy disabled markers and must store as NULL.
	for _, sentinel := range []string{"", "0"} {
		if err := s.UpdateServerSetting(ctx, "g1", "autorole_id", strptr(sentinel)); err != nil {
			t.Fatalf("set %q: %v", sentinel, err)
		}
		settings, err := s.GetServerSettings(ctx, "g1")
		if err != nil {
			t.Fatalf("GetServerSettings: %v", err)
		}
		if settings.AutoroleID != nil {
			t.Fatalf("sentinel %q stored as %v", sentinel, *settings.AutoroleID)
		}
	}
}

func TestUpdateServerSettingUnknownColumn(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateServerSetting(context.Background(), "g1", "nope; DROP TABLE", nil); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestAutoModConfigDefaults(t *testing.T) {
	s := newTestStore(t)
	cfg, err := s.GetAutoModConfig(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetAutoModConfig: %v", err)
	}
	if !cfg.SpamEnabled || !cfg.ProfanityEnabled || !cfg.MassPingEnabled {
		t.Fatalf("expected spam/profanity/mass-ping enabled by default: %+v", cfg)
	}
	if cfg.LinksEnabled {
		t.Fatal("link filter must start disabled")
	}
	if cfg.SpamThreshold != 5 || cfg.PingThreshold != 5 {
		t.Fatalf("thresholds = %d/%d", cfg.SpamThreshold, cfg.PingThreshold)
	}
	if len(cfg.ProfanityList) != 0 {
		t.Fatalf("profanity list should default empty, got %v", cfg.ProfanityList)
	}
}

func TestAutoModConfiguredDefaults(t *testing.T) {
	s := newTestStore(t).WithAutoModDefaults(8, 3)
	ctx := context.Background()

	// A guild touched for the first time inherits the configured thresholds.
	cfg, err := s.GetAutoModConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("GetAutoModConfig: %v", err)
	}
	if cfg.SpamThreshold != 8 || cfg.PingThreshold != 3 {
		t.Fatalf("thresholds = %d/%d, want 8/3", cfg.SpamThreshold, cfg.PingThreshold)
	}

	// A guild's own value survives the seeded defaults.
	if err := s.SetAutoModThreshold(ctx, "g1", "spam_threshold", 12); err != nil {
		t.Fatalf("threshold: %v", err)
	}
	cfg, err = s.GetAutoModConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("GetAutoModConfig: %v", err)
	}
	if cfg.SpamThreshold != 12 {
		t.Fatalf("spam threshold = %d, want 12", cfg.SpamThreshold)
	}
}

func TestAutoModToggleAndThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetAutoModToggle(ctx, "g1", "links_enabled", true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := s.SetAutoModThreshold(ctx, "g1", "spam_threshold", 8); err != nil {
		t.Fatalf("threshold: %v", err)
	}
	cfg, err := s.GetAutoModConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("GetAutoModConfig: %v", err)
	}
	if !cfg.LinksEnabled {
		t.Fatal("links still disabled")
	}
	if cfg.SpamThreshold != 8 {
		t.Fatalf("spam threshold = %d", cfg.SpamThreshold)
	}

	if err := s.SetAutoModToggle(ctx, "g1", "spam_threshold", true); err == nil {
		t.Fatal("expected error toggling a threshold column")
	}
	if err := s.SetAutoModThreshold(ctx, "g1", "spam_threshold", 0); err == nil {
		t.Fatal("expected error for threshold below 1")
	}
}

func TestAutoModWhitelists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddWhitelistedRole(ctx, "g1", "r1"); err != nil {
		t.Fatalf("add role: %v", err)
	}
	if err := s.AddWhitelistedRole(ctx, "g1", "r2"); err != nil {
		t.Fatalf("add role: %v", err)
	}
	// Duplicates are ignored.
	if err := s.AddWhitelistedRole(ctx, "g1", "r1"); err != nil {
		t.Fatalf("re-add role: %v", err)
	}
	if err := s.AddWhitelistedChannel(ctx, "g1", "c1"); err != nil {
		t.Fatalf("add channel: %v", err)
	}

	cfg, err := s.GetAutoModConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("GetAutoModConfig: %v", err)
	}
	if len(cfg.WhitelistedRoles) != 2 {
		t.Fatalf("roles = %v", cfg.WhitelistedRoles)
	}
	if len(cfg.WhitelistedChannels) != 1 || cfg.WhitelistedChannels[0] != "c1" {
		t.Fatalf("channels = %v", cfg.WhitelistedChannels)
	}

	if err := s.RemoveWhitelistedRole(ctx, "g1", "r1"); err != nil {
		t.Fatalf("remove role: %v", err)
	}
	cfg, err = s.GetAutoModConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("GetAutoModConfig: %v", err)
	}
	if len(cfg.WhitelistedRoles) != 1 || cfg.WhitelistedRoles[0] != "r2" {
		t.Fatalf("roles after remove = %v", cfg.WhitelistedRoles)
	}
}

func TestWarnings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	first, err := s.AddWarning(ctx, "g1", "u1", "mod", "spamming", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("AddWarning: %v", err)
	}
	second, err := s.AddWarning(ctx, "g1", "u1", "mod", "again", now)
	if err != nil {
		t.Fatalf("AddWarning: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("warning ids must be unique")
	}

	warnings, err := s.ListWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("ListWarnings: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings", len(warnings))
	}
	if warnings[0].Reason != "again" {
		t.Fatalf("expected newest first, got %q", warnings[0].Reason)
	}

	other, err := s.ListWarnings(ctx, "g1", "u2")
	if err != nil {
		t.Fatalf("ListWarnings other user: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("warnings leaked across users: %v", other)
	}

	cleared, err := s.ClearWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("ClearWarnings: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("cleared = %d", cleared)
	}
	warnings, err = s.ListWarnings(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("ListWarnings after clear: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings remain after clear: %v", warnings)
	}
}

func TestMutes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	deadline := now.Add(-time.Minute)
	if err := s.UpsertMute(ctx, Mute{GuildID: "g1", UserID: "u1", MuteRoleID: "muted", UnmuteAt: &deadline}); err != nil {
		t.Fatalf("UpsertMute: %v", err)
	}
	// Indefinite mute must never come back from ListDueMutes.
	if err := s.UpsertMute(ctx, Mute{GuildID: "g1", UserID: "u2", MuteRoleID: "muted"}); err != nil {
		t.Fatalf("UpsertMute indefinite: %v", err)
	}

	due, err := s.ListDueMutes(ctx, now)
	if err != nil {
		t.Fatalf("ListDueMutes: %v", err)
	}
	if len(due) != 1 || due[0].UserID != "u1" {
		t.Fatalf("due = %+v", due)
	}

	if err := s.DeleteMute(ctx, "g1", "u1"); err != nil {
		t.Fatalf("DeleteMute: %v", err)
	}
	due, err = s.ListDueMutes(ctx, now)
	if err != nil {
		t.Fatalf("ListDueMutes after delete: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("due after delete = %+v", due)
	}

	m, err := s.GetMute(ctx, "g1", "u2")
	if err != nil {
		t.Fatalf("GetMute: %v", err)
	}
	if m == nil || m.UnmuteAt != nil {
		t.Fatalf("indefinite mute = %+v", m)
	}
	if m2, err := s.GetMute(ctx, "g1", "missing"); err != nil || m2 != nil {
		t.Fatalf("GetMute missing = %+v, %v", m2, err)
	}
}

func TestCustomCommands(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddCustomCommand(ctx, "g1", "Hello", "hi there"); err != nil {
		t.Fatalf("AddCustomCommand: %v", err)
	}
	if err := s.AddCustomCommand(ctx, "g1", "hello", "other"); !errors.Is(err, ErrDuplicateCommand) {
		t.Fatalf("expected ErrDuplicateCommand, got %v", err)
	}
	// Same name in another guild is fine.
	if err := s.AddCustomCommand(ctx, "g2", "hello", "elsewhere"); err != nil {
		t.Fatalf("AddCustomCommand other guild: %v", err)
	}

	cmd, err := s.GetCustomCommand(ctx, "g1", "HELLO")
	if err != nil {
		t.Fatalf("GetCustomCommand: %v", err)
	}
	if cmd == nil || cmd.Response != "hi there" {
		t.Fatalf("cmd = %+v", cmd)
	}
	if missing, err := s.GetCustomCommand(ctx, "g1", "nope"); err != nil || missing != nil {
		t.Fatalf("missing = %+v, %v", missing, err)
	}

	removed, err := s.DeleteCustomCommand(ctx, "g1", "hello")
	if err != nil {
		t.Fatalf("DeleteCustomCommand: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	removed, err = s.DeleteCustomCommand(ctx, "g1", "hello")
	if err != nil {
		t.Fatalf("DeleteCustomCommand again: %v", err)
	}
	if removed {
		t.Fatal("second delete should report nothing removed")
	}
}

func TestUserLevels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ul, err := s.GetUserLevel(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("GetUserLevel: %v", err)
	}
	if ul.XP != 0 || ul.Level != 1 || ul.TotalMessages != 0 {
		t.Fatalf("fresh row = %+v", ul)
	}

	if err := s.UpdateUserLevel(ctx, "g1", "u1", 10, 1); err != nil {
		t.Fatalf("UpdateUserLevel: %v", err)
	}
	if err := s.UpdateUserLevel(ctx, "g1", "u1", 20, 1); err != nil {
		t.Fatalf("UpdateUserLevel: %v", err)
	}
	ul, err = s.GetUserLevel(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("GetUserLevel: %v", err)
	}
	if ul.XP != 20 || ul.TotalMessages != 2 {
		t.Fatalf("after updates = %+v", ul)
	}

	if err := s.UpdateUserLevel(ctx, "g1", "u2", 500, 3); err != nil {
		t.Fatalf("UpdateUserLevel u2: %v", err)
	}
	board, err := s.Leaderboard(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].UserID != "u2" {
		t.Fatalf("board = %+v", board)
	}
}

func TestAFK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	if err := s.SetAFK(ctx, "g1", "u1", "lunch", now); err != nil {
		t.Fatalf("SetAFK: %v", err)
	}
	status, err := s.GetAFK(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("GetAFK: %v", err)
	}
	if status == nil || status.Message != "lunch" || !status.Since.Equal(now) {
		t.Fatalf("status = %+v", status)
	}

	cleared, err := s.ClearAFK(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("ClearAFK: %v", err)
	}
	if !cleared {
		t.Fatal("expected clear to report removal")
	}
	cleared, err = s.ClearAFK(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("ClearAFK again: %v", err)
	}
	if cleared {
		t.Fatal("second clear should report nothing removed")
	}
	if status, err := s.GetAFK(ctx, "g1", "u1"); err != nil || status != nil {
		t.Fatalf("after clear = %+v, %v", status, err)
	}
}

func TestAnnouncements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	a, err := s.AddAnnouncement(ctx, "g1", "c1", "meeting time", 30, now)
	if err != nil {
		t.Fatalf("AddAnnouncement: %v", err)
	}
	want := now.Add(30 * time.Minute)
	if !a.NextRun.Equal(want) {
		t.Fatalf("next run = %v, want %v", a.NextRun, want)
	}

	// Not due yet.
	due, err := s.ListDueAnnouncements(ctx, now)
	if err != nil {
		t.Fatalf("ListDueAnnouncements: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("unexpectedly due: %+v", due)
	}

	later := now.Add(31 * time.Minute)
	due, err = s.ListDueAnnouncements(ctx, later)
	if err != nil {
		t.Fatalf("ListDueAnnouncements later: %v", err)
	}
	if len(due) != 1 || due[0].ID != a.ID {
		t.Fatalf("due = %+v", due)
	}

	if err := s.AdvanceAnnouncement(ctx, a.ID, later); err != nil {
		t.Fatalf("AdvanceAnnouncement: %v", err)
	}
	list, err := s.ListAnnouncements(ctx, "g1")
	if err != nil {
		t.Fatalf("ListAnnouncements: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}
	wantNext := later.Add(30 * time.Minute)
	if !list[0].NextRun.Equal(wantNext) {
		t.Fatalf("advanced next run = %v, want %v", list[0].NextRun, wantNext)
	}

	ok, err := s.SetAnnouncementEnabled(ctx, a.ID, false)
	if err != nil || !ok {
		t.Fatalf("SetAnnouncementEnabled: %v, %v", ok, err)
	}
	due, err = s.ListDueAnnouncements(ctx, wantNext.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListDueAnnouncements disabled: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("disabled announcement still due: %+v", due)
	}

	ok, err = s.DeleteAnnouncement(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteAnnouncement: %v, %v", ok, err)
	}
	ok, err = s.DeleteAnnouncement(ctx, a.ID)
	if err != nil {
		t.Fatalf("DeleteAnnouncement again: %v", err)
	}
	if ok {
		t.Fatal("second delete should report nothing removed")
	}
}

func TestReactionRoles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rr, err := s.AddReactionRole(ctx, ReactionRole{
		GuildID: "g1", MessageID: "m1", ChannelID: "c1", Emoji: "🎮", RoleID: "r1",
	})
	if err != nil {
		t.Fatalf("AddReactionRole: %v", err)
	}
	if rr.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, err := s.AddReactionRole(ctx, ReactionRole{
		GuildID: "g1", MessageID: "m1", ChannelID: "c1", Emoji: "🎨", RoleID: "r2",
	}); err != nil {
		t.Fatalf("AddReactionRole second: %v", err)
	}

	bindings, err := s.ListReactionRoles(ctx, "g1", "m1")
	if err != nil {
		t.Fatalf("ListReactionRoles: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("bindings = %+v", bindings)
	}

	removed, err := s.RemoveReactionRole(ctx, "g1", "m1", "🎮")
	if err != nil || !removed {
		t.Fatalf("RemoveReactionRole: %v, %v", removed, err)
	}
	bindings, err = s.ListReactionRoles(ctx, "g1", "m1")
	if err != nil {
		t.Fatalf("ListReactionRoles after remove: %v", err)
	}
	if len(bindings) != 1 || bindings[0].Emoji != "🎨" {
		t.Fatalf("bindings after remove = %+v", bindings)
	}
}
