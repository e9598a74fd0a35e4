package notify

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/medtrackpro/medtrack/internal/session"
	"github.com/medtrackpro/medtrack/internal/tracker"
)

// perfectStreakDays is how many consecutive fully-adherent days earn a
// streak notification
const perfectStreakDays = 7

// Sweeper periodically walks the live sessions and posts notifications for
// conditions worth surfacing: depleted stock and perfect adherence streaks.
// The store's message dedupe keeps repeat sweeps quiet.
type Sweeper struct {
	sessions *session.Manager
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewSweeper(sessions *session.Manager, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start schedules the sweep. Call Stop to halt it.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = "@every 1m"
	}
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return fmt.Errorf("failed to schedule notification sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("notification sweeper started", zap.String("schedule", schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep runs one pass over every live session
func (s *Sweeper) Sweep() {
	now := time.Now()
	s.sessions.Each(func(sess *session.Session) {
		if err := s.sweepSession(sess, now); err != nil {
			s.logger.Warn("notification sweep failed",
				zap.String("session_id", sess.ID),
				zap.Error(err))
		}
	})
}

func (s *Sweeper) sweepSession(sess *session.Session, now time.Time) error {
	if err := s.checkStock(sess); err != nil {
		return err
	}
	return s.checkStreak(sess, now)
}

// checkStock posts a warning per medication at or below its refill threshold
func (s *Sweeper) checkStock(sess *session.Session) error {
	meds, err := sess.Store.ListMedications()
	if err != nil {
		return err
	}
	for i := range meds {
		med := &meds[i]
		if med.RefillThreshold <= 0 || med.Stock > med.RefillThreshold {
			continue
		}
		msg := fmt.Sprintf("%s supply running low. Consider refill.", med.Name)
		if err := sess.Service.AddNotification(tracker.NotifyWarning, msg); err != nil {
			return err
		}
	}
	return nil
}

// checkStreak posts a success notification after perfectStreakDays
// consecutive days in which every logged dose was taken. Days with no log
// at all break the streak.
func (s *Sweeper) checkStreak(sess *session.Session, now time.Time) error {
	since := now.AddDate(0, 0, -perfectStreakDays - 1)
	entries, err := sess.Store.ListDoseLogs(since)
	if err != nil {
		return err
	}

	perfect := make(map[time.Time]bool)
	for _, e := range entries {
		day := time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, e.Date.Location())
		taken := e.Status == tracker.StatusTaken
		if v, seen := perfect[day]; seen {
			perfect[day] = v && taken
		} else {
			perfect[day] = taken
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for d := 1; d <= perfectStreakDays; d++ {
		day := today.AddDate(0, 0, -d)
		if !perfect[day] {
			return nil
		}
	}

	msg := fmt.Sprintf("Perfect medication adherence streak: %d days!", perfectStreakDays)
	return sess.Service.AddNotification(tracker.NotifySuccess, msg)
}
