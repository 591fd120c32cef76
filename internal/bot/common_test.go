package bot

import (
	"context"
	"testing"
	"time"

	"github.com/bowerhall/faqdesk/internal/agent"
	"github.com/bowerhall/faqdesk/internal/assistant/assistanttest"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/bowerhall/faqdesk/internal/session"
)

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Time{} }

func (instantClock) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newTestAgent(fake *assistanttest.Fake) *agent.Agent {
	exec := runner.New(fake, runner.Options{AssistantID: "asst_test", Clock: instantClock{}})
	return agent.New(fake, session.NewStore(fake), exec)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want command
	}{
		{"/reset", cmdReset},
		{"/reset_chat", cmdReset},
		{"/RESET", cmdReset},
		{"/help", cmdHelp},
		{"/help@faq_bot", cmdHelp},
		{"/start", cmdHelp},
		{"/unknown", cmdNone},
		{"reset", cmdNone},
		{"", cmdNone},
		{"what is /help?", cmdNone},
	}

	for _, tt := range tests {
		if got := parseCommand(tt.text); got != tt.want {
			t.Errorf("parseCommand(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestStripMentions(t *testing.T) {
	if got := stripMentions("<@U0BOT> what is the attendance policy? "); got != "what is the attendance policy?" {
		t.Errorf("unexpected text %q", got)
	}

	if got := stripMentions("<@!1234> hi <@5678>"); got != "hi" {
		t.Errorf("unexpected text %q", got)
	}

	if got := stripMentions("<@U0BOT>"); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestMentions(t *testing.T) {
	if !mentions("<@U0BOT> hi", "U0BOT") {
		t.Error("expected bot mention to be detected")
	}

	if mentions("<@U0OTHER> hi", "U0BOT") {
		t.Error("mention of another user should not count")
	}

	if !mentions("<@!42> hi", "42") {
		t.Error("expected nickname mention to be detected")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("short text changed: %q", got)
	}

	if got := truncate("출결 규정입니다", 2); got != "출결..." {
		t.Errorf("expected rune-safe truncation, got %q", got)
	}
}

func TestRunCommandReset(t *testing.T) {
	fake := assistanttest.Completing("ok")
	a := newTestAgent(fake)

	if got := runCommand(a, cmdReset, "U1"); got != resetNoneMessage {
		t.Errorf("expected nothing to reset, got %q", got)
	}

	a.Process(context.Background(), "U1", "hello")

	if got := runCommand(a, cmdReset, "U1"); got != resetDoneMessage {
		t.Errorf("expected reset confirmation, got %q", got)
	}

	if _, ok := a.Thread("U1"); ok {
		t.Error("thread should be forgotten")
	}
}

func TestAnswer(t *testing.T) {
	fake := assistanttest.Completing("Attendance is checked at 9am.")
	a := newTestAgent(fake)

	if got := answer(context.Background(), a, "U1", "  "); got != greetingMessage {
		t.Errorf("expected greeting for empty text, got %q", got)
	}

	if got := answer(context.Background(), a, "U1", "attendance?"); got != "Attendance is checked at 9am." {
		t.Errorf("unexpected reply %q", got)
	}

	a.Sessions().TryAcquire("U1")
	defer a.Sessions().Release("U1")

	if got := answer(context.Background(), a, "U1", "attendance?"); got != busyMessage {
		t.Errorf("expected busy notice, got %q", got)
	}
}
