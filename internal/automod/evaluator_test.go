package automod

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Joulessies/hansel-bot/internal/storage"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func defaultConfig() storage.AutoModConfig {
	return storage.AutoModConfig{
		GuildID:          "g1",
		SpamEnabled:      true,
		ProfanityEnabled: true,
		LinksEnabled:     false,
		MassPingEnabled:  true,
		SpamThreshold:    5,
		PingThreshold:    5,
	}
}

func newTestEvaluator() (*Evaluator, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	e := NewEvaluator(10 * time.Second).WithClock(clock)
	return e, clock
}

func msg(content string) Message {
	return Message{GuildID: "g1", AuthorID: "u1", ChannelID: "c1", Content: content}
}

func TestEvaluateCleanMessage(t *testing.T) {
	e, _ := newTestEvaluator()
	if a := e.Evaluate(msg("hello everyone"), defaultConfig()); a != nil {
		t.Fatalf("clean message flagged: %+v", a)
	}
}

func TestSpamThreshold(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()

	for i := 0; i < 4; i++ {
		if a := e.Evaluate(msg(fmt.Sprintf("msg %d", i)), cfg); a != nil {
			t.Fatalf("message %d flagged early: %+v", i, a)
		}
	}
	a := e.Evaluate(msg("msg 5"), cfg)
	if a == nil {
		t.Fatal("fifth message in window not flagged")
	}
	if a.Kind != ActionDeleteWarn {
		t.Fatalf("kind = %v", a.Kind)
	}

	// The window resets after a violation, so the next message passes.
	if a := e.Evaluate(msg("after reset"), cfg); a != nil {
		t.Fatalf("message after reset flagged: %+v", a)
	}
}

func TestSpamWindowExpiry(t *testing.T) {
	e, clock := newTestEvaluator()
	cfg := defaultConfig()

	for i := 0; i < 4; i++ {
		e.Evaluate(msg("hi"), cfg)
	}
	clock.Advance(11 * time.Second)
	if a := e.Evaluate(msg("hi again"), cfg); a != nil {
		t.Fatalf("message after window expiry flagged: %+v", a)
	}
}

func TestSpamWindowsIsolatedPerGuildAndUser(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()

	for i := 0; i < 4; i++ {
		e.Evaluate(msg("hi"), cfg)
	}
	other := msg("hi")
	other.AuthorID = "u2"
	if a := e.Evaluate(other, cfg); a != nil {
		t.Fatalf("other user inherited window: %+v", a)
	}
	elsewhere := msg("hi")
	elsewhere.GuildID = "g2"
	if a := e.Evaluate(elsewhere, cfg); a != nil {
		t.Fatalf("other guild inherited window: %+v", a)
	}
}

func TestProfanity(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()

	a := e.Evaluate(msg("well SHIT happens"), cfg)
	if a == nil || a.Kind != ActionDeleteWarn {
		t.Fatalf("profanity not flagged: %+v", a)
	}

	// A guild list replaces the built-in one entirely.
	cfg.ProfanityList = []string{"banana"}
	if a := e.Evaluate(msg("well shit happens"), cfg); a != nil {
		t.Fatalf("built-in word flagged despite guild list: %+v", a)
	}
	if a := e.Evaluate(msg("I like Banana bread"), cfg); a == nil {
		t.Fatal("guild word not flagged")
	}
}

func TestLinksDisabledByDefault(t *testing.T) {
	e, _ := newTestEvaluator()
	if a := e.Evaluate(msg("see https://example.com/page"), defaultConfig()); a != nil {
		t.Fatalf("link flagged while filter disabled: %+v", a)
	}
}

func TestLinks(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()
	cfg.LinksEnabled = true

	a := e.Evaluate(msg("see https://example.com/page"), cfg)
	if a == nil {
		t.Fatal("link not flagged")
	}
	if a.Kind != ActionDeleteWarn {
		t.Fatalf("kind = %v, want ActionDeleteWarn", a.Kind)
	}
	if !strings.Contains(a.Reason, "example.com") {
		t.Fatalf("reason missing host: %q", a.Reason)
	}
}

func TestEditChecksContentOnly(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()

	// Edits never feed the spam window, no matter how many arrive.
	for i := 0; i < 20; i++ {
		if a := e.EvaluateEdit(msg("revision"), cfg); a != nil {
			t.Fatalf("clean edit flagged: %+v", a)
		}
	}
	// A single fresh message afterwards still passes the spam check.
	if a := e.Evaluate(msg("new message"), cfg); a != nil {
		t.Fatalf("message after edits flagged: %+v", a)
	}

	a := e.EvaluateEdit(msg("well shit happens"), cfg)
	if a == nil || a.Kind != ActionDeleteWarn {
		t.Fatalf("profane edit not flagged: %+v", a)
	}

	cfg.LinksEnabled = true
	if a := e.EvaluateEdit(msg("now see https://example.com/x"), cfg); a == nil {
		t.Fatal("link edit not flagged")
	}
}

func TestEditRespectsWhitelist(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()
	cfg.WhitelistedRoles = []string{"mods"}

	m := msg("well shit happens")
	m.AuthorRoles = []string{"mods"}
	if a := e.EvaluateEdit(m, cfg); a != nil {
		t.Fatalf("whitelisted role flagged on edit: %+v", a)
	}

	m.AuthorRoles = nil
	if a := e.EvaluateEdit(m, cfg); a == nil {
		t.Fatal("non-whitelisted edit not flagged")
	}
}

func TestMassPing(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()

	m := msg("hey everyone")
	m.MentionedUsers = []string{"a", "b", "c", "a"}
	m.MentionedRoles = []string{"r1"}
	// 3 unique users + 1 role = 4, below the threshold of 5.
	if a := e.Evaluate(m, cfg); a != nil {
		t.Fatalf("below-threshold ping flagged: %+v", a)
	}

	m.MentionedRoles = []string{"r1", "r2"}
	a := e.Evaluate(m, cfg)
	if a == nil || a.Kind != ActionDeleteWarn {
		t.Fatalf("mass ping not flagged: %+v", a)
	}
}

func TestWhitelistShortCircuits(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()
	cfg.WhitelistedChannels = []string{"c1"}

	for i := 0; i < 10; i++ {
		if a := e.Evaluate(msg("shit"), cfg); a != nil {
			t.Fatalf("whitelisted channel flagged: %+v", a)
		}
	}

	cfg.WhitelistedChannels = nil
	cfg.WhitelistedRoles = []string{"mods"}
	m := msg("shit")
	m.AuthorRoles = []string{"member", "mods"}
	if a := e.Evaluate(m, cfg); a != nil {
		t.Fatalf("whitelisted role flagged: %+v", a)
	}
}

func TestSpamWinsOverProfanity(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()
	cfg.SpamThreshold = 2

	e.Evaluate(msg("first"), cfg)
	a := e.Evaluate(msg("shit"), cfg)
	if a == nil {
		t.Fatal("expected a violation")
	}
	if !strings.Contains(a.Reason, "slow down") {
		t.Fatalf("expected spam to win, got %q", a.Reason)
	}
}

func TestDisabledChecksSkipped(t *testing.T) {
	e, _ := newTestEvaluator()
	cfg := defaultConfig()
	cfg.SpamEnabled = false
	cfg.ProfanityEnabled = false
	cfg.MassPingEnabled = false

	m := msg("shit")
	m.MentionedUsers = []string{"a", "b", "c", "d", "e"}
	for i := 0; i < 10; i++ {
		if a := e.Evaluate(m, cfg); a != nil {
			t.Fatalf("disabled checks still fired: %+v", a)
		}
	}
}
