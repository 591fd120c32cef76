// Package heartbeat periodically verifies that the configured assistant is
// reachable and raises operator alerts when it is not.
package heartbeat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bowerhall/faqdesk/internal/alerts"
	"github.com/bowerhall/faqdesk/internal/assistant"
	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/robfig/cron/v3"
)

const checkTimeout = 30 * time.Second

// cronParser accepts standard 5-field cron expressions
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CheckFunc probes the remote service and returns an error when it is
// unusable.
type CheckFunc func(ctx context.Context) error

// AssistantCheck fetches the assistant on every call. Unlike agent.Info it
// never caches, so a revoked key or deleted assistant is noticed.
func AssistantCheck(client assistant.Client, assistantID string) CheckFunc {
	return func(ctx context.Context) error {
		info, err := client.GetAssistant(ctx, assistantID)
		if err != nil {
			return err
		}
		logger.Debug("heartbeat ok", "assistant", info.ID, "model", info.Model)
		return nil
	}
}

type Runner struct {
	schedule cron.Schedule
	check    CheckFunc
	alerts   *alerts.Alerter
	timezone *time.Location
	now      func() time.Time

	mu      sync.Mutex
	failing bool
}

func New(expr string, check CheckFunc, alerter *alerts.Alerter, tz *time.Location) (*Runner, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid heartbeat schedule %q: %w", expr, err)
	}

	if tz == nil {
		tz = time.UTC
	}

	return &Runner{
		schedule: schedule,
		check:    check,
		alerts:   alerter,
		timezone: tz,
		now:      time.Now,
	}, nil
}

// Next returns the next scheduled beat after the current time.
func (r *Runner) Next() time.Time {
	return r.schedule.Next(r.now().In(r.timezone))
}

// Run beats on schedule until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	logger.Info("heartbeat started", "next", r.Next())

	for {
		timer := time.NewTimer(time.Until(r.Next()))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Debug("heartbeat stopping")
			return
		case <-timer.C:
			r.Beat(ctx)
		}
	}
}

// Beat runs one check. A failure raises a critical alert; the first success
// after a failure reports recovery.
func (r *Runner) Beat(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := r.check(checkCtx)

	r.mu.Lock()
	wasFailing := r.failing
	r.failing = err != nil
	r.mu.Unlock()

	if err != nil {
		logger.Error("heartbeat failed", "error", err)
		r.alerts.Critical("heartbeat", "Assistant unreachable", err)
		return err
	}

	if wasFailing {
		logger.Info("heartbeat recovered")
		r.alerts.Info("heartbeat", "Assistant reachable again")
	}

	return nil
}
