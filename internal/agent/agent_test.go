package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bowerhall/faqdesk/internal/alerts"
	"github.com/bowerhall/faqdesk/internal/assistant"
	"github.com/bowerhall/faqdesk/internal/assistant/assistanttest"
	"github.com/bowerhall/faqdesk/internal/budget"
	"github.com/bowerhall/faqdesk/internal/relevance"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/bowerhall/faqdesk/internal/session"
)

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Time{} }

func (instantClock) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newAgent(fake *assistanttest.Fake) *Agent {
	exec := runner.New(fake, runner.Options{AssistantID: "asst_test", Clock: instantClock{}})
	return New(fake, session.NewStore(fake), exec)
}

func TestProcessReturnsReply(t *testing.T) {
	fake := assistanttest.Completing("Attendance is checked at 9am.")
	a := newAgent(fake)

	got := a.Process(context.Background(), "U1", "What is the attendance policy?")
	if got != "Attendance is checked at 9am." {
		t.Errorf("unexpected reply %q", got)
	}

	if _, ok := a.Thread("U1"); !ok {
		t.Error("expected a thread to be recorded for the user")
	}
}

func TestProcessReusesThread(t *testing.T) {
	fake := assistanttest.Completing("ok")
	a := newAgent(fake)

	a.Process(context.Background(), "U1", "first")
	a.Process(context.Background(), "U1", "second")

	if fake.ThreadCount() != 1 {
		t.Errorf("expected 1 thread across messages, got %d", fake.ThreadCount())
	}
}

func TestProcessGateRedirects(t *testing.T) {
	fake := assistanttest.Completing("ok")
	a := newAgent(fake)
	rules := relevance.Default()
	a.SetRules(rules)

	got := a.Process(context.Background(), "U1", "What's the weather today?")
	if got != rules.RedirectMessage {
		t.Errorf("expected redirect message, got %q", got)
	}

	if fake.ThreadCount() != 0 || len(fake.Messages) != 0 {
		t.Error("off-domain questions must not reach the assistant")
	}
}

func TestProcessWrapsAndFilters(t *testing.T) {
	fake := assistanttest.Completing(strings.Repeat("x", 600))
	a := newAgent(fake)
	rules := relevance.Default()
	a.SetRules(rules)

	got := a.Process(context.Background(), "U1", "When is the capstone deadline?")
	if got != rules.LongResponseMessage {
		t.Errorf("expected long response notice, got %q", got)
	}

	if len(fake.Messages) != 1 || !strings.Contains(fake.Messages[0], "When is the capstone deadline?") || fake.Messages[0] == "When is the capstone deadline?" {
		t.Errorf("expected wrapped prompt to be sent, got %v", fake.Messages)
	}
}

func TestProcessThreadFailure(t *testing.T) {
	fake := assistanttest.Completing("ok")
	fake.ThreadErr = errors.New("service unavailable")
	a := newAgent(fake)

	var sent []string
	a.SetAlerter(alerts.New(func(msg string) { sent = append(sent, msg) }, time.Minute))

	got := a.Process(context.Background(), "U1", "hello")
	if !strings.HasPrefix(got, runner.ErrorMarker) {
		t.Errorf("expected error marker, got %q", got)
	}

	if len(sent) != 1 {
		t.Errorf("expected an operator alert, got %d", len(sent))
	}
}

func TestProcessRunFailure(t *testing.T) {
	fake := assistanttest.New(assistant.StatusQueued, assistant.StatusFailed)
	fake.LastError = &assistant.RunError{Code: "rate_limit_exceeded", Message: "rate_limited"}
	a := newAgent(fake)

	got := a.Process(context.Background(), "U1", "hello")
	if !strings.Contains(got, "rate_limited") {
		t.Errorf("expected failure detail, got %q", got)
	}
}

func TestProcessBudget(t *testing.T) {
	fake := assistanttest.Completing("ok")
	fake.Usage = assistant.Usage{PromptTokens: 80, CompletionTokens: 20, TotalTokens: 100}
	a := newAgent(fake)
	a.SetBudget(budget.NewTracker(budget.Config{DailyLimit: 150}, nil, nil))

	if got := a.Process(context.Background(), "U1", "one"); got != "ok" {
		t.Fatalf("expected reply, got %q", got)
	}

	if got := a.Process(context.Background(), "U1", "two"); got != "ok" {
		t.Fatalf("expected reply while under limit, got %q", got)
	}

	got := a.Process(context.Background(), "U1", "three")
	if got != limitReachedMessage {
		t.Errorf("expected limit message, got %q", got)
	}

	if len(fake.Messages) != 2 {
		t.Errorf("expected the third message to be blocked, got %d sent", len(fake.Messages))
	}
}

func TestTryProcessBusy(t *testing.T) {
	fake := assistanttest.Completing("ok")
	a := newAgent(fake)

	if !a.Sessions().TryAcquire("U1") {
		t.Fatal("TryAcquire should succeed")
	}

	if _, err := a.TryProcess(context.Background(), "U1", "hello"); !errors.Is(err, session.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	a.Sessions().Release("U1")

	got, err := a.TryProcess(context.Background(), "U1", "hello")
	if err != nil || got != "ok" {
		t.Errorf("expected reply after release, got %q, %v", got, err)
	}
}

func TestResetAndForget(t *testing.T) {
	fake := assistanttest.Completing("ok")
	a := newAgent(fake)

	a.Process(context.Background(), "U1", "hello")
	old, _ := a.Thread("U1")

	fresh, err := a.Reset(context.Background(), "U1")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if fresh == old {
		t.Error("expected a new thread after reset")
	}

	if !a.Forget("U1") {
		t.Error("expected Forget to report an existing mapping")
	}
	if _, ok := a.Thread("U1"); ok {
		t.Error("expected no thread after Forget")
	}
}

func TestStatus(t *testing.T) {
	fake := assistanttest.Completing("ok")
	fake.Info = &assistant.Info{ID: "asst_test", Name: "Bootcamp FAQ", Model: "gpt-4o-mini"}
	a := newAgent(fake)
	a.SetBudget(budget.NewTracker(budget.Config{DailyLimit: 1000}, nil, nil))

	a.Process(context.Background(), "U1", "hello")

	st := a.Status(context.Background())
	if st.Assistant == nil || st.Assistant.Name != "Bootcamp FAQ" {
		t.Errorf("unexpected assistant info %+v", st.Assistant)
	}
	if st.Sessions != 1 {
		t.Errorf("expected 1 session, got %d", st.Sessions)
	}
	if st.Limit != 1000 {
		t.Errorf("expected limit 1000, got %d", st.Limit)
	}
	if len(st.Alerts) != 0 {
		t.Errorf("expected no alerts, got %v", st.Alerts)
	}
}

func TestStatusIncludesAlerts(t *testing.T) {
	fake := assistanttest.Completing("ok")
	fake.RunErr = errors.New("service unavailable")
	a := newAgent(fake)
	a.SetAlerter(alerts.New(nil, time.Hour))

	a.Process(context.Background(), "U1", "hello")

	st := a.Status(context.Background())
	if len(st.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(st.Alerts))
	}
	if st.Alerts[0].Component != "assistant" || !strings.Contains(st.Alerts[0].Err, "service unavailable") {
		t.Errorf("unexpected alert %+v", st.Alerts[0])
	}
}
