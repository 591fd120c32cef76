package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/bowerhall/faqdesk/internal/logger"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarn:
		return "warn"
	default:
		return "info"
	}
}

func (s Severity) icon() string {
	switch s {
	case SeverityCritical:
		return "🚨"
	case SeverityWarn:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// NotifyFunc delivers an alert to operators, e.g. a Slack channel.
type NotifyFunc func(message string)

// Event is a recorded alert, kept for status displays.
type Event struct {
	Severity  Severity
	Component string
	Message   string
	Err       string
	At        time.Time
}

const recentLimit = 20

type Alerter struct {
	mu        sync.Mutex
	notify    NotifyFunc
	cooldowns map[string]time.Time
	cooldown  time.Duration
	recent    []Event
	now       func() time.Time
}

func New(notify NotifyFunc, cooldown time.Duration) *Alerter {
	return &Alerter{
		notify:    notify,
		cooldowns: make(map[string]time.Time),
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Alert logs the event and forwards it to the notifier unless the same
// component and message were sent within the cooldown window.
func (a *Alerter) Alert(severity Severity, component, message string, err error) {
	if a == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	key := fmt.Sprintf("%s:%s", component, message)

	ev := Event{Severity: severity, Component: component, Message: message, At: now}
	if err != nil {
		ev.Err = err.Error()
	}
	a.record(ev)

	logger.Warn("alert", "component", component, "severity", severity.String(), "message", message, "error", ev.Err)

	if lastSent, ok := a.cooldowns[key]; ok {
		if now.Sub(lastSent) < a.cooldown {
			logger.Debug("alert suppressed (cooldown)", "component", component, "message", message)
			return
		}
	}

	text := fmt.Sprintf("%s %s: %s", severity.icon(), component, message)
	if err != nil {
		text += fmt.Sprintf("\n\nError: %v", err)
	}

	if a.notify != nil {
		a.notify(text)
		a.cooldowns[key] = now
		logger.Info("alert sent", "component", component, "severity", severity.String())
	}
}

func (a *Alerter) Critical(component, message string, err error) {
	a.Alert(SeverityCritical, component, message, err)
}

func (a *Alerter) Warn(component, message string, err error) {
	a.Alert(SeverityWarn, component, message, err)
}

func (a *Alerter) Info(component, message string) {
	a.Alert(SeverityInfo, component, message, nil)
}

// Recent returns the latest alerts, newest first.
func (a *Alerter) Recent() []Event {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Event, len(a.recent))
	for i, ev := range a.recent {
		out[len(a.recent)-1-i] = ev
	}

	return out
}

// must hold lock
func (a *Alerter) record(ev Event) {
	a.recent = append(a.recent, ev)
	if len(a.recent) > recentLimit {
		a.recent = a.recent[len(a.recent)-recentLimit:]
	}
}
