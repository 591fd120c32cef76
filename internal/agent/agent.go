package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/bowerhall/faqdesk/internal/alerts"
	"github.com/bowerhall/faqdesk/internal/assistant"
	"github.com/bowerhall/faqdesk/internal/budget"
	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/bowerhall/faqdesk/internal/relevance"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/bowerhall/faqdesk/internal/session"
)

const limitReachedMessage = runner.WarningMarker + " The daily usage limit has been reached. Please try again tomorrow."

func New(client assistant.Client, sessions *session.Store, executor *runner.Executor) *Agent {
	return &Agent{
		client:   client,
		sessions: sessions,
		executor: executor,
	}
}

// SetRules enables the relevance gate, the prompt wrapper and the response
// filter. Without rules every question is forwarded verbatim.
func (a *Agent) SetRules(r *relevance.Rules) {
	a.rules = r
}

func (a *Agent) SetBudget(b *budget.Tracker) {
	a.budget = b
}

func (a *Agent) SetAlerter(alerter *alerts.Alerter) {
	a.alerts = alerter
}

func (a *Agent) Sessions() *session.Store {
	return a.sessions
}

// Process answers one message from userID. It never fails: every problem is
// turned into a user-facing string carrying an error marker.
func (a *Agent) Process(ctx context.Context, userID, text string) string {
	logger.Debug("message received", "user", userID, "chars", len(text))

	if a.rules != nil {
		if redirect, ok := a.rules.Gate(text); !ok {
			logger.Debug("message redirected", "user", userID)
			return redirect
		}
	}

	if a.budget != nil && !a.budget.Allowed() {
		logger.Warn("daily budget exhausted", "user", userID)
		return limitReachedMessage
	}

	threadID, err := a.sessions.GetOrCreateThread(ctx, userID)
	if err != nil {
		logger.Error("thread creation failed", "user", userID, "error", err)
		a.alerts.Critical("session", "Thread creation failed", err)
		return runner.Outcome{Kind: runner.OutcomeError, Detail: err.Error(), Err: err}.Display()
	}

	prompt := text
	if a.rules != nil {
		if prompt, err = a.rules.Wrap(text); err != nil {
			logger.Error("prompt wrap failed", "user", userID, "error", err)
			prompt = text
		}
	}

	out := a.executor.SubmitAndWait(ctx, threadID, prompt)

	if a.budget != nil && out.Usage.TotalTokens > 0 {
		a.budget.Record(a.model(), out.Usage)
	}

	logger.Info("message processed",
		"user", userID,
		"thread", threadID,
		"run", out.RunID,
		"status", out.Status,
		"outcome", out.Kind.String(),
		"elapsed", out.Elapsed,
		"chars", len(out.Text),
	)

	if out.OK() {
		if a.rules != nil {
			return a.rules.Filter(out.Text)
		}
		return out.Text
	}

	switch out.Kind {
	case runner.OutcomeError:
		if !errors.Is(out.Err, context.Canceled) {
			a.alerts.Critical("assistant", "Run request failed", out.Err)
		}
	case runner.OutcomeFailed:
		a.alerts.Warn("assistant", "Run failed", errors.New(out.Detail))
	case runner.OutcomeTimeout:
		a.alerts.Warn("assistant", "Run timed out", nil)
	}

	return out.Display()
}

// TryProcess is Process guarded by the user's processing lock. It returns
// session.ErrBusy while an earlier message from the same user is in flight.
func (a *Agent) TryProcess(ctx context.Context, userID, text string) (string, error) {
	if !a.sessions.TryAcquire(userID) {
		logger.Debug("session busy", "user", userID)
		return "", session.ErrBusy
	}
	defer a.sessions.Release(userID)

	return a.Process(ctx, userID, text), nil
}

// Reset starts a new conversation thread for userID.
func (a *Agent) Reset(ctx context.Context, userID string) (string, error) {
	threadID, err := a.sessions.Reset(ctx, userID)
	if err != nil {
		a.alerts.Critical("session", "Thread reset failed", err)
		return "", err
	}
	return threadID, nil
}

// Forget drops the user's conversation; the next message starts fresh.
func (a *Agent) Forget(userID string) bool {
	return a.sessions.Forget(userID)
}

func (a *Agent) Thread(userID string) (string, bool) {
	return a.sessions.Lookup(userID)
}

// Alerts returns the operator alerts raised so far, newest first.
func (a *Agent) Alerts() []alerts.Event {
	return a.alerts.Recent()
}

// Info fetches the configured assistant once and caches it.
func (a *Agent) Info(ctx context.Context) (*assistant.Info, error) {
	a.mu.Lock()
	cached := a.info
	a.mu.Unlock()

	if cached != nil {
		return cached, nil
	}

	info, err := a.client.GetAssistant(ctx, a.executor.Options().AssistantID)
	if err != nil {
		return nil, fmt.Errorf("fetch assistant: %w", err)
	}

	a.mu.Lock()
	a.info = info
	a.mu.Unlock()

	return info, nil
}

func (a *Agent) Status(ctx context.Context) Status {
	st := Status{Sessions: a.sessions.Len()}

	if info, err := a.Info(ctx); err == nil {
		st.Assistant = info
	} else {
		logger.Warn("assistant lookup failed", "error", err)
	}

	if a.budget != nil {
		st.Usage = a.budget.Today()
		_, st.Limit = a.budget.Usage()
	}

	st.Alerts = a.alerts.Recent()

	return st
}

func (a *Agent) model() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.info == nil {
		return ""
	}
	return a.info.Model
}
