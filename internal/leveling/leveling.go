package leveling

import (
	"context"
	"math"
	"sync"

	"github.com/Joulessies/hansel-bot/internal/storage"
)

// LevelForXP maps total xp to a level. Level 1 starts at 0 xp, level 2 at
// 100, level 3 at 400, and so on quadratically.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return int(math.Sqrt(float64(xp)/100)) + 1
}

// Result reports the state after awarding xp for one message.
type Result struct {
	XP        int
	Level     int
	LeveledUp bool
}

// Engine awards message xp through the store. A per-guild mutex keeps the
// read-modify-write atomic without serializing unrelated guilds.
type Engine struct {
	store        *storage.Store
	xpPerMessage int

	mu     sync.Mutex
	guilds map[string]*sync.Mutex
}

func NewEngine(store *storage.Store, xpPerMessage int) *Engine {
	if xpPerMessage < 1 {
		xpPerMessage = 10
	}
	return &Engine{
		store:        store,
		xpPerMessage: xpPerMessage,
		guilds:       make(map[string]*sync.Mutex),
	}
}

func (e *Engine) AddMessageXP(ctx context.Context, guildID, userID string) (Result, error) {
	lock := e.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	current, err := e.store.GetUserLevel(ctx, guildID, userID)
	if err != nil {
		return Result{}, err
	}

	xp := current.XP + e.xpPerMessage
	level := LevelForXP(xp)
	if err := e.store.UpdateUserLevel(ctx, guildID, userID, xp, level); err != nil {
		return Result{}, err
	}
	return Result{
		XP:        xp,
		Level:     level,
		LeveledUp: level > current.Level,
	}, nil
}

func (e *Engine) Leaderboard(ctx context.Context, guildID string, limit int) ([]storage.UserLevel, error) {
	return e.store.Leaderboard(ctx, guildID, limit)
}

func (e *Engine) UserLevel(ctx context.Context, guildID, userID string) (storage.UserLevel, error) {
	return e.store.GetUserLevel(ctx, guildID, userID)
}

func (e *Engine) guildLock(guildID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.guilds[guildID]
	if !ok {
		lock = &sync.Mutex{}
		e.guilds[guildID] = lock
	}
	return lock
}
