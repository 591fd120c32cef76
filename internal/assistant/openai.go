package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bowerhall/faqdesk/internal/annotation"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// messageScanLimit bounds how many recent messages are inspected when
// looking for the latest assistant reply.
const messageScanLimit = 20

type openaiAssistants struct {
	client openai.Client
}

func newOpenAI(opts ...option.RequestOption) Client {
	return &openaiAssistants{client: openai.NewClient(opts...)}
}

func (o *openaiAssistants) CreateThread(ctx context.Context) (string, error) {
	thread, err := o.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}

	return thread.ID, nil
}

func (o *openaiAssistants) CreateMessage(ctx context.Context, threadID string, role Role, text string) error {
	_, err := o.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRole(role),
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

func (o *openaiAssistants) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	run, err := o.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	if err != nil {
		if isActiveRunError(err) {
			return nil, fmt.Errorf("%w: %v", ErrActiveRun, err)
		}
		return nil, fmt.Errorf("create run: %w", err)
	}

	return convertRun(run), nil
}

func (o *openaiAssistants) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run, err := o.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	return convertRun(run), nil
}

func (o *openaiAssistants) LatestRun(ctx context.Context, threadID string) (*Run, error) {
	page, err := o.client.Beta.Threads.Runs.List(ctx, threadID, openai.BetaThreadRunListParams{
		Limit: openai.Int(1),
		Order: openai.BetaThreadRunListParamsOrderDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	if len(page.Data) == 0 {
		return nil, nil
	}

	return convertRun(&page.Data[0]), nil
}

func (o *openaiAssistants) LatestAssistantMessage(ctx context.Context, threadID string) (*Message, error) {
	page, err := o.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Limit: openai.Int(messageScanLimit),
		Order: openai.BetaThreadMessageListParamsOrderDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range page.Data {
		if msg.Role != openai.MessageRoleAssistant {
			continue
		}

		return convertMessage(msg), nil
	}

	return nil, nil
}

func (o *openaiAssistants) GetAssistant(ctx context.Context, assistantID string) (*Info, error) {
	a, err := o.client.Beta.Assistants.Get(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("get assistant: %w", err)
	}

	return &Info{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Model:       a.Model,
	}, nil
}

func convertRun(r *openai.Run) *Run {
	run := &Run{
		ID:       r.ID,
		ThreadID: r.ThreadID,
		Status:   RunStatus(r.Status),
		Usage: Usage{
			PromptTokens:     int(r.Usage.PromptTokens),
			CompletionTokens: int(r.Usage.CompletionTokens),
			TotalTokens:      int(r.Usage.TotalTokens),
		},
	}

	if r.LastError.Code != "" || r.LastError.Message != "" {
		run.LastError = &RunError{Code: r.LastError.Code, Message: r.LastError.Message}
	}

	return run
}

// convertMessage keeps the first text block of a message, which is where the
// assistant puts its answer.
func convertMessage(m openai.Message) *Message {
	msg := &Message{ID: m.ID, Role: Role(m.Role)}

	for _, block := range m.Content {
		if block.Type != "text" {
			continue
		}

		msg.Text = block.Text.Value
		for _, a := range block.Text.Annotations {
			msg.Annotations = append(msg.Annotations, annotation.Span{
				Start: int(a.StartIndex),
				End:   int(a.EndIndex),
			})
		}
		break
	}

	return msg
}

func isActiveRunError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != http.StatusBadRequest {
		return false
	}

	return strings.Contains(err.Error(), "already has an active run")
}
