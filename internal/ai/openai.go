package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI proposes schedule operations through the chat completions API
// with a strict response schema.
type OpenAI struct {
	client openai.Client
	model  string
	tz     string
	logger *slog.Logger
}

func NewOpenAI(apiKey, baseURL, model, tz string, logger *slog.Logger) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		tz:     tz,
		logger: logger,
	}
}

func (p *OpenAI) ProposeOperations(ctx context.Context, request string, agenda []AgendaItem, now time.Time) (*Proposal, error) {
	system := buildSystemPrompt(agenda, now, p.tz)

	p.logger.Debug("requesting operations",
		"model", p.model,
		"agenda_items", len(agenda),
		"request_len", len(request),
	)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(buildUserPrompt(request)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "schedule_operations",
					Description: openai.String("Move, create and delete operations for focus blocks"),
					Schema:      proposalSchema(),
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("requesting completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	var proposal Proposal
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &proposal); err != nil {
		return nil, fmt.Errorf("parsing model output: %w", err)
	}

	p.logger.Debug("received proposal",
		"operations", len(proposal.Operations),
		"clarification", proposal.Clarification != "",
	)
	return &proposal, nil
}
