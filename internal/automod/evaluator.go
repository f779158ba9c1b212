package automod

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Joulessies/hansel-bot/internal/storage"
	"github.com/Joulessies/hansel-bot/internal/utils"
)

// defaultProfanity is used when a guild has not configured its own word list.
var defaultProfanity = []string{"fuck", "shit", "bitch", "asshole", "cunt"}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ActionKind says what the adapter should do about a message.
type ActionKind int

const (
	ActionDelete ActionKind = iota
	ActionDeleteWarn
)

type Action struct {
	Kind   ActionKind
	Reason string
}

// Message is the channel message as seen by the evaluator, already detached
// from any transport type.
type Message struct {
	GuildID        string
	AuthorID       string
	ChannelID      string
	Content        string
	AuthorRoles    []string
	MentionedUsers []string
	MentionedRoles []string
}

// Evaluator applies a guild's moderation policy to messages. Checks run in a
// fixed order and the first violation wins; spam windows live here, keyed by
// guild and author, so state never leaks across guilds.
type Evaluator struct {
	mu      sync.Mutex
	windows map[string]*utils.SlidingWindow
	window  time.Duration
	clock   Clock
}

func NewEvaluator(spamWindow time.Duration) *Evaluator {
	return &Evaluator{
		windows: make(map[string]*utils.SlidingWindow),
		window:  spamWindow,
		clock:   realClock{},
	}
}

// WithClock swaps the time source, for tests.
func (e *Evaluator) WithClock(c Clock) *Evaluator {
	e.clock = c
	return e
}

// Evaluate returns nil when the message passes every enabled check.
func (e *Evaluator) Evaluate(msg Message, cfg storage.AutoModConfig) *Action {
	if e.isWhitelisted(msg, cfg) {
		return nil
	}
	if cfg.SpamEnabled {
		if a := e.checkSpam(msg, cfg); a != nil {
			return a
		}
	}
	return contentChecks(msg, cfg)
}

// EvaluateEdit re-checks a message whose content changed. An edit is not a new
// message, so it never touches the author's spam window; only the content
// checks run. The whitelist still short-circuits.
func (e *Evaluator) EvaluateEdit(msg Message, cfg storage.AutoModConfig) *Action {
	if e.isWhitelisted(msg, cfg) {
		return nil
	}
	return contentChecks(msg, cfg)
}

func contentChecks(msg Message, cfg storage.AutoModConfig) *Action {
	if cfg.ProfanityEnabled {
		if a := checkProfanity(msg, cfg); a != nil {
			return a
		}
	}
	if cfg.LinksEnabled {
		if a := checkLinks(msg); a != nil {
			return a
		}
	}
	if cfg.MassPingEnabled {
		if a := checkMassPing(msg, cfg); a != nil {
			return a
		}
	}
	return nil
}

func (e *Evaluator) isWhitelisted(msg Message, cfg storage.AutoModConfig) bool {
	for _, ch := range cfg.WhitelistedChannels {
		if ch == msg.ChannelID {
			return true
		}
	}
	for _, role := range msg.AuthorRoles {
		for _, allowed := range cfg.WhitelistedRoles {
			if role == allowed {
				return true
			}
		}
	}
	return false
}

func (e *Evaluator) checkSpam(msg Message, cfg storage.AutoModConfig) *Action {
	now := e.clock.Now()
	w := e.windowFor(msg.GuildID, msg.AuthorID)
	if w.Add(now) < cfg.SpamThreshold {
		return nil
	}
	// Reset so the author gets a fresh window instead of tripping on every
	// message after the burst.
	w.Reset()
	return &Action{Kind: ActionDeleteWarn, Reason: "sending messages too quickly, slow down"}
}

func (e *Evaluator) windowFor(guildID, userID string) *utils.SlidingWindow {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := guildID + ":" + userID
	w, ok := e.windows[key]
	if !ok {
		w = utils.NewSlidingWindow(e.window)
		e.windows[key] = w
	}
	return w
}

func checkProfanity(msg Message, cfg storage.AutoModConfig) *Action {
	words := cfg.ProfanityList
	if len(words) == 0 {
		words = defaultProfanity
	}
	content := strings.ToLower(msg.Content)
	for _, word := range words {
		word = strings.ToLower(word)
		if word != "" && strings.Contains(content, word) {
			return &Action{Kind: ActionDeleteWarn, Reason: "inappropriate language"}
		}
	}
	return nil
}

func checkLinks(msg Message) *Action {
	if !utils.ContainsURL(msg.Content) {
		return nil
	}
	reason := "links are not allowed here"
	if urls := utils.ExtractURLs(msg.Content); len(urls) > 0 {
		if host, err := utils.NormalizeHost(urls[0]); err == nil && host != "" {
			reason = fmt.Sprintf("links are not allowed here (%s)", host)
		}
	}
	return &Action{Kind: ActionDeleteWarn, Reason: reason}
}

func checkMassPing(msg Message, cfg storage.AutoModConfig) *Action {
	unique := make(map[string]struct{}, len(msg.MentionedUsers))
	for _, id := range msg.MentionedUsers {
		unique[id] = struct{}{}
	}
	total := len(unique) + len(msg.MentionedRoles)
	if total < cfg.PingThreshold {
		return nil
	}
	return &Action{Kind: ActionDeleteWarn, Reason: fmt.Sprintf("mass mention of %d users/roles", total)}
}
