package agent

import (
	"sync"

	"github.com/bowerhall/faqdesk/internal/alerts"
	"github.com/bowerhall/faqdesk/internal/assistant"
	"github.com/bowerhall/faqdesk/internal/budget"
	"github.com/bowerhall/faqdesk/internal/relevance"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/bowerhall/faqdesk/internal/session"
)

type Agent struct {
	client   assistant.Client
	sessions *session.Store
	executor *runner.Executor
	rules    *relevance.Rules
	budget   *budget.Tracker
	alerts   *alerts.Alerter

	mu   sync.Mutex
	info *assistant.Info
}

// Status is a snapshot for status pages and commands.
type Status struct {
	Assistant *assistant.Info
	Sessions  int
	Usage     budget.Summary
	Limit     int
	Alerts    []alerts.Event
}
