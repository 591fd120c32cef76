package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bowerhall/faqdesk/internal/annotation"
)

// ErrActiveRun is returned by CreateRun when the thread still has an
// unfinished run. Only one run may be outstanding per thread.
var ErrActiveRun = errors.New("thread already has an active run")

type Config struct {
	Provider        string
	APIKey          string
	BaseURL         string
	AzureEndpoint   string
	AzureAPIVersion string
	RequestTimeout  time.Duration
	MaxRetries      int
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCancelling     RunStatus = "cancelling"
	StatusCancelled      RunStatus = "cancelled"
	StatusFailed         RunStatus = "failed"
	StatusCompleted      RunStatus = "completed"
	StatusIncomplete     RunStatus = "incomplete"
	StatusExpired        RunStatus = "expired"
)

// Pending reports whether the run may still change state on its own.
func (s RunStatus) Pending() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusCancelling:
		return true
	default:
		return false
	}
}

type RunError struct {
	Code    string
	Message string
}

func (e *RunError) String() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return e.Message
	}
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Run struct {
	ID        string
	ThreadID  string
	Status    RunStatus
	LastError *RunError
	Usage     Usage
}

type Message struct {
	ID          string
	Role        Role
	Text        string
	Annotations []annotation.Span
}

// Info describes a configured assistant.
type Info struct {
	ID          string
	Name        string
	Description string
	Model       string
}

// Client is the subset of the hosted assistant API the engine consumes.
type Client interface {
	CreateThread(ctx context.Context) (string, error)
	CreateMessage(ctx context.Context, threadID string, role Role, text string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	// LatestRun returns nil, nil when the thread has no runs.
	LatestRun(ctx context.Context, threadID string) (*Run, error)
	// LatestAssistantMessage returns nil, nil when no assistant reply exists.
	LatestAssistantMessage(ctx context.Context, threadID string) (*Message, error)
	GetAssistant(ctx context.Context, assistantID string) (*Info, error)
}
