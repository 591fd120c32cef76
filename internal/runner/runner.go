package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bowerhall/faqdesk/internal/annotation"
	"github.com/bowerhall/faqdesk/internal/assistant"
	"github.com/bowerhall/faqdesk/internal/logger"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultPollInterval   = time.Second
	DefaultCreateAttempts = 3
	DefaultCreateBackoff  = 2 * time.Second
)

var errNoResponse = errors.New("no response from assistant")

type Options struct {
	AssistantID    string
	Timeout        time.Duration
	PollInterval   time.Duration
	CreateAttempts int
	CreateBackoff  time.Duration

	// WaitForActive makes the executor wait for a run that is already in
	// flight on the thread before adding a new message.
	WaitForActive bool

	Clock  Clock
	OnPoll func(status assistant.RunStatus, attempt, limit int)
}

type Executor struct {
	client assistant.Client
	opts   Options
}

func New(client assistant.Client, opts Options) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.CreateAttempts <= 0 {
		opts.CreateAttempts = DefaultCreateAttempts
	}
	if opts.CreateBackoff < 0 {
		opts.CreateBackoff = 0
	} else if opts.CreateBackoff == 0 {
		opts.CreateBackoff = DefaultCreateBackoff
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}

	return &Executor{client: client, opts: opts}
}

func (e *Executor) Options() Options {
	return e.opts
}

// maxPolls is the number of status fetches allowed within the timeout.
func (e *Executor) maxPolls() int {
	n := int(e.opts.Timeout / e.opts.PollInterval)
	if e.opts.Timeout%e.opts.PollInterval != 0 {
		n++
	}
	return n
}

// SubmitAndWait posts text to the thread, starts a run and blocks until the
// run settles or the timeout elapses. Failures are reported in the Outcome.
func (e *Executor) SubmitAndWait(ctx context.Context, threadID, text string) Outcome {
	if e.opts.WaitForActive {
		e.waitForActive(ctx, threadID)
	}

	started := e.opts.Clock.Now()
	out := e.submit(ctx, threadID, text)
	out.Elapsed = e.opts.Clock.Now().Sub(started)

	return out
}

func (e *Executor) submit(ctx context.Context, threadID, text string) Outcome {

	if err := e.client.CreateMessage(ctx, threadID, assistant.RoleUser, text); err != nil {
		return errorOutcome(err)
	}

	run, err := e.createRun(ctx, threadID)
	if err != nil {
		return errorOutcome(err)
	}

	logger.Debug("run created", "thread", threadID, "run", run.ID, "status", run.Status)

	run, err = e.poll(ctx, threadID, run)
	if err != nil {
		return Outcome{Kind: OutcomeError, Status: run.Status, RunID: run.ID, Detail: err.Error(), Err: err}
	}

	return e.settle(ctx, threadID, run)
}

func (e *Executor) createRun(ctx context.Context, threadID string) (*assistant.Run, error) {
	var lastErr error

	for attempt := 1; attempt <= e.opts.CreateAttempts; attempt++ {
		run, err := e.client.CreateRun(ctx, threadID, e.opts.AssistantID)
		if err == nil {
			return run, nil
		}

		if !errors.Is(err, assistant.ErrActiveRun) {
			return nil, err
		}

		lastErr = err
		logger.Warn("thread busy, retrying run creation", "thread", threadID, "attempt", attempt, "max", e.opts.CreateAttempts)

		if attempt == e.opts.CreateAttempts {
			break
		}

		if err := e.opts.Clock.Sleep(ctx, e.opts.CreateBackoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", lastErr, e.opts.CreateAttempts)
}

// poll re-fetches the run until it leaves the pending states or the poll
// allowance is spent. The returned run is never nil.
func (e *Executor) poll(ctx context.Context, threadID string, run *assistant.Run) (*assistant.Run, error) {
	limit := e.maxPolls()

	for attempt := 1; run.Status.Pending() && attempt <= limit; attempt++ {
		if err := e.opts.Clock.Sleep(ctx, e.opts.PollInterval); err != nil {
			return run, err
		}

		next, err := e.client.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return run, err
		}
		run = next

		if e.opts.OnPoll != nil {
			e.opts.OnPoll(run.Status, attempt, limit)
		}
	}

	return run, nil
}

func (e *Executor) settle(ctx context.Context, threadID string, run *assistant.Run) Outcome {
	out := Outcome{Status: run.Status, RunID: run.ID, Usage: run.Usage}

	switch {
	case run.Status.Pending():
		out.Kind = OutcomeTimeout
		logger.Warn("run timed out", "thread", threadID, "run", run.ID, "status", run.Status)
	case run.Status == assistant.StatusCompleted:
		msg, err := e.client.LatestAssistantMessage(ctx, threadID)
		if err != nil {
			out.Kind, out.Detail, out.Err = OutcomeError, err.Error(), err
			return out
		}
		if msg == nil {
			out.Kind, out.Detail, out.Err = OutcomeError, errNoResponse.Error(), errNoResponse
			return out
		}

		out.Kind = OutcomeSuccess
		out.Text = annotation.Strip(msg.Text, msg.Annotations)
	case run.Status == assistant.StatusFailed:
		out.Kind = OutcomeFailed
		out.Detail = run.LastError.String()
		if out.Detail == "" {
			out.Detail = "unknown error"
		}
	case run.Status == assistant.StatusRequiresAction:
		out.Kind = OutcomeNeedsAction
	default:
		out.Kind = OutcomeUnexpected
	}

	return out
}

// waitForActive blocks while the latest run on the thread is still pending.
// Errors are logged and otherwise ignored; the subsequent run creation will
// surface any real problem.
func (e *Executor) waitForActive(ctx context.Context, threadID string) {
	run, err := e.client.LatestRun(ctx, threadID)
	if err != nil {
		logger.Warn("failed to check active run", "thread", threadID, "error", err)
		return
	}

	if run == nil || !run.Status.Pending() {
		return
	}

	logger.Info("waiting for active run", "thread", threadID, "run", run.ID, "status", run.Status)

	if _, err := e.poll(ctx, threadID, run); err != nil {
		logger.Warn("failed waiting for active run", "thread", threadID, "error", err)
	}
}
