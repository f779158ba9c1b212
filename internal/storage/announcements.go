package storage

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/graxinc/errutil"
	"github.com/rs/xid"
)

type Announcement struct {
	ID              string
	GuildID         string
	ChannelID       string
	Message         string
	IntervalMinutes int
	NextRun         time.Time
	Enabled         bool
}

// AddAnnouncement schedules the first delivery one full interval from now.
func (s *Store) AddAnnouncement(ctx context.Context, guildID, channelID, message string, intervalMinutes int, now time.Time) (Announcement, error) {
	a := Announcement{
		ID:              xid.New().String(),
		GuildID:         guildID,
		ChannelID:       channelID,
		Message:         message,
		IntervalMinutes: intervalMinutes,
		NextRun:         now.Add(time.Duration(intervalMinutes) * time.Minute),
		Enabled:         true,
	}
	q := s.builder.
		Insert("scheduled_announcements").
		Columns("id", "guild_id", "channel_id", "message", "interval_minutes", "next_run", "enabled").
		Values(a.ID, a.GuildID, a.ChannelID, a.Message, a.IntervalMinutes, a.NextRun.Unix(), 1)
	if _, err := q.ExecContext(ctx); err != nil {
		return Announcement{}, errutil.With(err)
	}
	return a, nil
}

// ListDueAnnouncements returns enabled announcements whose next_run has passed.
func (s *Store) ListDueAnnouncements(ctx context.Context, now time.Time) ([]Announcement, error) {
	q := s.builder.
		Select("id", "guild_id", "channel_id", "message", "interval_minutes", "next_run").
		From("scheduled_announcements").
		Where(sq.And{
			sq.Eq{"enabled": 1},
			sq.LtOrEq{"next_run": now.Unix()},
		})
	return s.scanAnnouncements(ctx, q, true)
}

// AdvanceAnnouncement pushes next_run one interval past from. Using the sweep's
// observed time rather than the stored next_run keeps a long outage from
// queueing a burst of catch-up deliveries.
func (s *Store) AdvanceAnnouncement(ctx context.Context, id string, from time.Time) error {
	q := s.builder.
		Update("scheduled_announcements").
		Set("next_run", sq.Expr("? + interval_minutes * 60", from.Unix())).
		Where(sq.Eq{"id": id})
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}
	return nil
}

func (s *Store) SetAnnouncementEnabled(ctx context.Context, id string, enabled bool) (bool, error) {
	q := s.builder.
		Update("scheduled_announcements").
		Set("enabled", boolToInt(enabled)).
		Where(sq.Eq{"id": id})
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

func (s *Store) ListAnnouncements(ctx context.Context, guildID string) ([]Announcement, error) {
	q := s.builder.
		Select("id", "guild_id", "channel_id", "message", "interval_minutes", "next_run", "enabled").
		From("scheduled_announcements").
		Where(sq.Eq{"guild_id": guildID}).
		OrderBy("next_run")
	return s.scanAnnouncements(ctx, q, false)
}

func (s *Store) DeleteAnnouncement(ctx context.Context, id string) (bool, error) {
	q := s.builder.
		Delete("scheduled_announcements").
		Where(sq.Eq{"id": id})
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

func (s *Store) scanAnnouncements(ctx context.Context, q sq.SelectBuilder, enabledOnly bool) ([]Announcement, error) {
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, errutil.With(err)
	}
	defer rows.Close()

	var announcements []Announcement
	for rows.Next() {
		var a Announcement
		var nextRun int64
		if enabledOnly {
			if err := rows.Scan(&a.ID, &a.GuildID, &a.ChannelID, &a.Message, &a.IntervalMinutes, &nextRun); err != nil {
				return nil, errutil.With(err)
			}
			a.Enabled = true
		} else {
			var enabled int
			if err := rows.Scan(&a.ID, &a.GuildID, &a.ChannelID, &a.Message, &a.IntervalMinutes, &nextRun, &enabled); err != nil {
				return nil, errutil.With(err)
			}
			a.Enabled = enabled == 1
		}
		a.NextRun = time.Unix(nextRun, 0)
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errutil.With(err)
	}
	return announcements, nil
}
