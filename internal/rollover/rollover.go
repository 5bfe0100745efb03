// Package rollover runs the day-cutoff check of a long-running process on
// a schedule, so a new study day starts even when nobody asks for a card.
package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Checker applies a pending day rollover.
type Checker interface {
	CheckDay(ctx context.Context) error
}

// Job calls a Checker every interval.
type Job struct {
	cron     *gocron.Scheduler
	checker  Checker
	interval time.Duration
	log      *slog.Logger
}

// New creates a job; call Start to run it.
func New(c Checker, interval time.Duration, log *slog.Logger) *Job {
	if log == nil {
		log = slog.Default()
	}
	return &Job{
		cron:     gocron.NewScheduler(time.UTC),
		checker:  c,
		interval: interval,
		log:      log,
	}
}

// Start schedules the check, runs it once right away and returns.
func (j *Job) Start() error {
	if _, err := j.cron.Every(j.interval).SingletonMode().Do(j.run); err != nil {
		return fmt.Errorf("failed to schedule rollover check: %w", err)
	}
	j.cron.StartAsync()
	j.log.Info("rollover check started", "interval", j.interval)
	return nil
}

// Stop waits for a running check and stops the schedule.
func (j *Job) Stop() {
	j.cron.Stop()
}

func (j *Job) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval)
	defer cancel()
	if err := j.checker.CheckDay(ctx); err != nil {
		j.log.Error("rollover check failed", "err", err)
	}
}
