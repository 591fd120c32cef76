package runner

import (
	"fmt"
	"time"

	"github.com/bowerhall/faqdesk/internal/assistant"
)

type Kind int

const (
	OutcomeSuccess Kind = iota
	OutcomeError
	OutcomeFailed
	OutcomeNeedsAction
	OutcomeTimeout
	OutcomeUnexpected
)

func (k Kind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeFailed:
		return "failed"
	case OutcomeNeedsAction:
		return "needs_action"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

const (
	ErrorMarker   = "❌"
	WarningMarker = "⚠️"
)

// Outcome is the result of one submit-and-wait cycle. Text is only set on
// success; Detail carries the failure description for everything else.
type Outcome struct {
	Kind   Kind
	Text   string
	Status assistant.RunStatus
	Detail string
	RunID  string
	Usage  assistant.Usage
	Err    error

	// Elapsed is measured from message submission until the run settled.
	Elapsed time.Duration
}

func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Display renders the outcome as the string shown to the end user.
func (o Outcome) Display() string {
	switch o.Kind {
	case OutcomeSuccess:
		return o.Text
	case OutcomeError:
		return fmt.Sprintf("%s An error occurred: %s", ErrorMarker, o.Detail)
	case OutcomeFailed:
		return fmt.Sprintf("%s The run failed: %s", ErrorMarker, o.Detail)
	case OutcomeNeedsAction:
		return WarningMarker + " The assistant requested an action this client does not support."
	case OutcomeTimeout:
		return fmt.Sprintf("%s Timed out waiting for the assistant (status: %s).", WarningMarker, o.Status)
	default:
		return fmt.Sprintf("%s Unexpected run status: %s", WarningMarker, o.Status)
	}
}

func errorOutcome(err error) Outcome {
	return Outcome{Kind: OutcomeError, Detail: err.Error(), Err: err}
}
