package leveling

import (
	"context"
	"testing"

	"github.com/Joulessies/hansel-bot/internal/storage"
)

func TestLevelForXP(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{50, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{900, 4},
		{-10, 1},
	}
	for _, tc := range cases {
		if got := LevelForXP(tc.xp); got != tc.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestLevelForXPMonotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := 1; xp <= 5000; xp++ {
		level := LevelForXP(xp)
		if level < prev {
			t.Fatalf("level dropped from %d to %d at xp %d", prev, level, xp)
		}
		prev = level
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewEngine(s, 10)
}

func TestAddMessageXP(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.AddMessageXP(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("AddMessageXP: %v", err)
	}
	if res.XP != 10 || res.Level != 1 || res.LeveledUp {
		t.Fatalf("first message = %+v", res)
	}

	// 10 xp per message: the tenth message crosses 100 xp into level 2.
	for i := 0; i < 8; i++ {
		if _, err := e.AddMessageXP(ctx, "g1", "u1"); err != nil {
			t.Fatalf("AddMessageXP: %v", err)
		}
	}
	res, err = e.AddMessageXP(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("AddMessageXP: %v", err)
	}
	if res.XP != 100 || res.Level != 2 || !res.LeveledUp {
		t.Fatalf("tenth message = %+v", res)
	}

	// The next message stays on level 2.
	res, err = e.AddMessageXP(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("AddMessageXP: %v", err)
	}
	if res.LeveledUp {
		t.Fatalf("eleventh message reported a level up: %+v", res)
	}

	ul, err := e.UserLevel(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("UserLevel: %v", err)
	}
	if ul.TotalMessages != 11 {
		t.Fatalf("total messages = %d", ul.TotalMessages)
	}
}

func TestLeaderboardOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.AddMessageXP(ctx, "g1", "busy"); err != nil {
			t.Fatalf("AddMessageXP: %v", err)
		}
	}
	if _, err := e.AddMessageXP(ctx, "g1", "quiet"); err != nil {
		t.Fatalf("AddMessageXP: %v", err)
	}

	board, err := e.Leaderboard(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].UserID != "busy" {
		t.Fatalf("board = %+v", board)
	}
}
