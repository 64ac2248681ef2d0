// Package nudge reminds the user over Slack when a workday passes without a daily log.
package nudge

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"workpilot/internal/config"
	"workpilot/internal/domain"
	"workpilot/internal/storage/sqlite"
)

type Notifier interface {
	Notify(text string) error
}

type Scheduler struct {
	db       *sql.DB
	notifier Notifier
	sched    cron.Schedule
	loc      *time.Location
	now      func() time.Time
}

// New returns nil when reminders are disabled: no schedule or no Slack destination.
func New(cfg config.Config, db *sql.DB, notifier Notifier) (*Scheduler, error) {
	if cfg.NudgeSchedule == "" {
		log.Println("No nudge_schedule configured, nudge disabled")
		return nil, nil
	}
	if !cfg.SlackConfigured() || notifier == nil {
		log.Println("Slack not configured, nudge disabled")
		return nil, nil
	}
	sched, err := cron.ParseStandard(cfg.NudgeSchedule)
	if err != nil {
		return nil, fmt.Errorf("parse nudge_schedule %q: %w", cfg.NudgeSchedule, err)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{db: db, notifier: notifier, sched: sched, loc: loc, now: time.Now}, nil
}

// Run sleeps until each scheduled tick and checks for today's log, until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		now := s.now().In(s.loc)
		next := s.sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next nudge at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if _, err := s.Check(next); err != nil {
			log.Printf("nudge check failed err=%v", err)
		}
	}
}

// Check sends a reminder when the daily report for at's date is missing or blank.
func (s *Scheduler) Check(at time.Time) (bool, error) {
	date := at.In(s.loc).Format(domain.DateLayout)
	exists, err := sqlite.DailyReportExists(s.db, date)
	if err != nil {
		return false, fmt.Errorf("check daily report %s: %w", date, err)
	}
	if exists {
		log.Printf("nudge skipped date=%s reason=report_exists", date)
		return false, nil
	}
	if err := s.notifier.Notify(reminderText(date)); err != nil {
		return false, err
	}
	log.Printf("nudge sent date=%s", date)
	return true, nil
}

func reminderText(date string) string {
	return fmt.Sprintf("还没有记录 %s 的工作日志。花两分钟写下今天做了什么，周报和 OKR 会用到它。", date)
}
