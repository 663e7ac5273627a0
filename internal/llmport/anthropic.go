// Package llmport implements C8's ports.LLM against Anthropic and OpenAI
// chat-completion APIs.
//
// Grounded on internal/llm/anthropic/client.go's Client: sdk construction
// via option.WithAPIKey/WithBaseURL, observability.LoggerWithTrace
// request logging. Narrowed from the teacher's multi-turn, tool-calling,
// streaming Chat/ChatStream surface down to spec's single-turn
// system-prompt-plus-user-prompt ports.LLM.Complete — the augmentor and
// llm-kind handlers never need tool calls or mid-response streaming.
package llmport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"chunkscope/internal/observability"
	"chunkscope/internal/ports"
)

const defaultAnthropicMaxTokens int64 = 1024

type anthropicLLM struct {
	sdk   anthropic.Client
	model string
}

// NewAnthropicLLM builds a ports.LLM backed by the Anthropic Messages API.
func NewAnthropicLLM(apiKey, model, baseURL string) ports.LLM {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithHTTPClient(observability.NewHTTPClient(nil)),
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	m := strings.TrimSpace(model)
	if m == "" {
		m = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &anthropicLLM{sdk: anthropic.NewClient(opts...), model: m}
}

func (a *anthropicLLM) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ports.CompletionOptions) (string, error) {
	maxTokens := defaultAnthropicMaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = int64(opts.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt))},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	log := observability.LoggerWithTrace(ctx)
	if b, err := json.Marshal(params); err == nil {
		log.Debug().RawJSON("request", observability.RedactJSON(b)).Msg("anthropic_complete_request")
	}

	start := time.Now()
	resp, err := a.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", a.model).Dur("duration", dur).Msg("anthropic_complete_error")
		return "", fmt.Errorf("anthropic complete: %w", err)
	}
	if b, err := json.Marshal(resp); err == nil {
		log.Debug().RawJSON("response", observability.RedactJSON(b)).Msg("anthropic_complete_response")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	log.Debug().Str("model", a.model).Dur("duration", dur).
		Int("input_tokens", int(resp.Usage.InputTokens)).
		Int("output_tokens", int(resp.Usage.OutputTokens)).
		Msg("anthropic_complete_ok")
	return sb.String(), nil
}
