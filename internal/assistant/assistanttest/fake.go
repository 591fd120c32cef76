// Package assistanttest provides an in-memory assistant.Client for tests.
package assistanttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/bowerhall/faqdesk/internal/assistant"
)

// Fake is a scripted assistant.Client. CreateRun and each GetRun call pop the
// next entry of Statuses; once the script is exhausted the last status repeats.
type Fake struct {
	mu sync.Mutex

	Statuses  []assistant.RunStatus
	LastError *assistant.RunError
	Usage     assistant.Usage
	Reply     *assistant.Message

	// ActiveConflicts is the number of CreateRun calls that fail with
	// ErrActiveRun before one succeeds.
	ActiveConflicts int
	Latest          *assistant.Run

	ThreadErr  error
	MessageErr error
	RunErr     error
	GetErr     error
	ReplyErr   error
	LatestErr  error
	Info       *assistant.Info
	InfoErr    error

	Threads     int
	Messages    []string
	RunCreates  int
	Polls       int
	LatestCalls int

	threadCreated chan struct{}
	gate          chan struct{}
}

func New(statuses ...assistant.RunStatus) *Fake {
	return &Fake{Statuses: statuses}
}

// Completing returns a fake whose runs complete on the first poll with reply.
func Completing(reply string) *Fake {
	f := New(assistant.StatusQueued, assistant.StatusCompleted)
	f.Reply = &assistant.Message{ID: "msg_1", Role: assistant.RoleAssistant, Text: reply}
	return f
}

// BlockThreads makes CreateThread wait until Unblock is called.
func (f *Fake) BlockThreads() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.threadCreated = make(chan struct{}, 1)
}

// ThreadStarted is signalled when a blocked CreateThread call has begun.
func (f *Fake) ThreadStarted() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threadCreated
}

func (f *Fake) Unblock() {
	f.mu.Lock()
	gate := f.gate
	f.gate = nil
	f.mu.Unlock()

	if gate != nil {
		close(gate)
	}
}

func (f *Fake) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	gate, started := f.gate, f.threadCreated
	f.mu.Unlock()

	if gate != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ThreadErr != nil {
		return "", f.ThreadErr
	}

	f.Threads++
	return fmt.Sprintf("thread_%d", f.Threads), nil
}

func (f *Fake) CreateMessage(ctx context.Context, threadID string, role assistant.Role, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.MessageErr != nil {
		return f.MessageErr
	}

	f.Messages = append(f.Messages, text)
	return nil
}

func (f *Fake) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RunCreates++

	if f.RunErr != nil {
		return nil, f.RunErr
	}

	if f.ActiveConflicts > 0 {
		f.ActiveConflicts--
		return nil, fmt.Errorf("%w: run_busy", assistant.ErrActiveRun)
	}

	run := &assistant.Run{
		ID:       fmt.Sprintf("run_%d", f.RunCreates),
		ThreadID: threadID,
		Status:   f.next(assistant.StatusQueued),
	}
	if !run.Status.Pending() {
		run.Usage = f.Usage
	}

	return run, nil
}

func (f *Fake) next(fallback assistant.RunStatus) assistant.RunStatus {
	if len(f.Statuses) == 0 {
		return fallback
	}

	status := f.Statuses[0]
	if len(f.Statuses) > 1 {
		f.Statuses = f.Statuses[1:]
	}

	return status
}

func (f *Fake) GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GetErr != nil {
		return nil, f.GetErr
	}

	f.Polls++

	status := f.next(assistant.StatusCompleted)

	run := &assistant.Run{ID: runID, ThreadID: threadID, Status: status, Usage: f.Usage}
	if status == assistant.StatusFailed {
		run.LastError = f.LastError
	}

	return run, nil
}

func (f *Fake) LatestRun(ctx context.Context, threadID string) (*assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.LatestCalls++
	return f.Latest, f.LatestErr
}

func (f *Fake) LatestAssistantMessage(ctx context.Context, threadID string) (*assistant.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.Reply, f.ReplyErr
}

func (f *Fake) GetAssistant(ctx context.Context, assistantID string) (*assistant.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.InfoErr != nil {
		return nil, f.InfoErr
	}

	if f.Info != nil {
		return f.Info, nil
	}

	return &assistant.Info{ID: assistantID, Name: "FAQ Assistant", Model: "gpt-4o-mini"}, nil
}

// PollCount returns the number of GetRun calls so far.
func (f *Fake) PollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Polls
}

func (f *Fake) ThreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Threads
}
