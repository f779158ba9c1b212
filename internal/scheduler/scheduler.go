// Package scheduler runs the periodic sweeps: expiring timed mutes and
// delivering recurring announcements. It talks to the platform only through
// the Dispatcher interface, so sweeps are testable without a gateway.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Joulessies/hansel-bot/internal/event"
	"github.com/Joulessies/hansel-bot/internal/storage"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, action event.Action) error
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Scheduler struct {
	store      *storage.Store
	dispatcher Dispatcher
	logger     *zap.Logger
	interval   time.Duration
	clock      Clock
}

func New(store *storage.Store, dispatcher Dispatcher, logger *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   interval,
		clock:      realClock{},
	}
}

// WithClock swaps the time source, for tests.
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	s.clock = c
	return s
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass of both sweeps.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.clock.Now()
	s.sweepMutes(ctx, now)
	s.sweepAnnouncements(ctx, now)
}

// sweepMutes lifts expired timed mutes. The record is deleted only after the
// role removal succeeds, so a failed dispatch retries on the next pass.
func (s *Scheduler) sweepMutes(ctx context.Context, now time.Time) {
	due, err := s.store.ListDueMutes(ctx, now)
	if err != nil {
		s.logger.Error("listing due mutes", zap.Error(err))
		return
	}
	for _, m := range due {
		action := event.Action{
			Kind:       event.ActionRemoveRole,
			GuildID:    m.GuildID,
			RemoveRole: &event.RoleChange{UserID: m.UserID, RoleID: m.MuteRoleID},
		}
		if err := s.dispatcher.Dispatch(ctx, action); err != nil {
			s.logger.Error("unmuting user",
				zap.String("guild_id", m.GuildID),
				zap.String("user_id", m.UserID),
				zap.Error(err))
			continue
		}
		if err := s.store.DeleteMute(ctx, m.GuildID, m.UserID); err != nil {
			s.logger.Error("deleting mute record",
				zap.String("guild_id", m.GuildID),
				zap.String("user_id", m.UserID),
				zap.Error(err))
			continue
		}
		s.logger.Info("mute expired",
			zap.String("guild_id", m.GuildID),
			zap.String("user_id", m.UserID))
	}
}

// sweepAnnouncements delivers due announcements and advances next_run from
// the sweep's observed time, not the stored deadline, so a long outage does
// not replay every missed interval.
func (s *Scheduler) sweepAnnouncements(ctx context.Context, now time.Time) {
	due, err := s.store.ListDueAnnouncements(ctx, now)
	if err != nil {
		s.logger.Error("listing due announcements", zap.Error(err))
		return
	}
	for _, a := range due {
		action := event.Action{
			Kind:    event.ActionSendMessage,
			GuildID: a.GuildID,
			SendMessage: &event.SendMessage{
				ChannelID: a.ChannelID,
				Content:   a.Message,
			},
		}
		if err := s.dispatcher.Dispatch(ctx, action); err != nil {
			s.logger.Error("delivering announcement",
				zap.String("announcement_id", a.ID),
				zap.String("guild_id", a.GuildID),
				zap.Error(err))
			continue
		}
		if err := s.store.AdvanceAnnouncement(ctx, a.ID, now); err != nil {
			s.logger.Error("advancing announcement",
				zap.String("announcement_id", a.ID),
				zap.Error(err))
		}
	}
}
