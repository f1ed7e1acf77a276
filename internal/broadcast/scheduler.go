package broadcast

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/minemsg"
	"github.com/kapu/mc-bridge-go/internal/obslog"
	"github.com/kapu/mc-bridge-go/internal/wiki"
)

// wikiDelay separates the chime from the trivia that follows it.
const wikiDelay = 2 * time.Second

// Scheduler fires the configured broadcast into every adapter at the top of
// each hour, followed by a random wiki trivia line.
type Scheduler struct {
	store   *ConfigStore
	sender  *Sender
	lookup  wiki.Lookup
	targets func() []Conn

	wikiDelay time.Duration
	logger    *zap.Logger
}

// NewScheduler builds a scheduler. targets is called at fire time so adapters
// registered later are included.
func NewScheduler(store *ConfigStore, sender *Sender, lookup wiki.Lookup, targets func() []Conn) *Scheduler {
	return &Scheduler{
		store:     store,
		sender:    sender,
		lookup:    lookup,
		targets:   targets,
		wikiDelay: wikiDelay,
		logger:    obslog.L().Named("scheduler"),
	}
}

// Run blocks until ctx is cancelled, firing at each top of the hour. The wait
// is recomputed every cycle, so clock adjustments cannot drift the schedule.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("hourly broadcast scheduler started")
	for {
		wait := time.Until(nextTopOfHour(time.Now()))
		s.logger.Debug("next broadcast scheduled", zap.Duration("in", wait))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			s.logger.Info("scheduler stopped")
			return
		case <-t.C:
		}
		s.Fire(ctx)
	}
}

// Fire runs one full broadcast cycle immediately. Used by the hourly loop and
// by the operator test command.
func (s *Scheduler) Fire(ctx context.Context) {
	if !s.store.Enabled() {
		s.logger.Debug("hourly broadcast disabled, skipping")
		return
	}

	conns := s.targets()
	for i, conn := range conns {
		if s.sender.SendRich(conn, s.store.ContentFor(conn.ID())) {
			s.logger.Info("hourly broadcast sent", zap.String("adapter", conn.ID()))
		} else {
			s.logger.Warn("hourly broadcast failed", zap.String("adapter", conn.ID()))
		}
		if i < len(conns)-1 {
			time.Sleep(s.sender.Pace())
		}
	}

	s.fireWiki(ctx, conns)
}

func (s *Scheduler) fireWiki(ctx context.Context, conns []Conn) {
	if s.lookup == nil {
		return
	}
	entry, err := s.lookup.Random(ctx)
	if err != nil {
		s.logger.Warn("wiki trivia fetch failed, skipping", zap.Error(err))
		return
	}
	trivia := []minemsg.Component{{
		Text:      fmt.Sprintf("Did you know: %s - %s", entry.Title, entry.Content),
		Color:     "yellow",
		HoverText: "Random knowledge from the Minecraft wiki",
	}}

	t := time.NewTimer(s.wikiDelay)
	select {
	case <-ctx.Done():
		t.Stop()
		return
	case <-t.C:
	}

	for _, conn := range conns {
		s.sender.SendRich(conn, trivia)
	}
}

// nextTopOfHour returns the next hh:00:00 strictly after now, in now's
// location. Truncate is avoided because it works on absolute time and lands
// off the hour in half-hour-offset zones.
func nextTopOfHour(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location()).Add(time.Hour)
}
