package llmport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"chunkscope/internal/observability"
	"chunkscope/internal/ports"
)

type openAILLM struct {
	client openai.Client
	model  string
}

// NewOpenAILLM builds a ports.LLM backed by OpenAI's chat-completions API
// (or any OpenAI-compatible endpoint via baseURL).
func NewOpenAILLM(apiKey, model, baseURL string) ports.LLM {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(observability.NewHTTPClient(nil)),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAILLM{client: openai.NewClient(opts...), model: model}
}

func (o *openAILLM) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ports.CompletionOptions) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: messages,
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	log := observability.LoggerWithTrace(ctx)
	if b, err := json.Marshal(params); err == nil {
		log.Debug().RawJSON("request", observability.RedactJSON(b)).Msg("openai_complete_request")
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", o.model).Dur("duration", dur).Msg("openai_complete_error")
		return "", fmt.Errorf("openai complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai complete: empty response")
	}
	if b, err := json.Marshal(resp); err == nil {
		log.Debug().RawJSON("response", observability.RedactJSON(b)).Msg("openai_complete_response")
	}
	log.Debug().Str("model", o.model).Dur("duration", dur).
		Int("prompt_tokens", int(resp.Usage.PromptTokens)).
		Int("completion_tokens", int(resp.Usage.CompletionTokens)).
		Msg("openai_complete_ok")
	return resp.Choices[0].Message.Content, nil
}
