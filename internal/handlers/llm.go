package handlers

import (
	"context"
	"fmt"
	"strings"

	"chunkscope/internal/model"
	"chunkscope/internal/ports"
	"chunkscope/internal/registry"
)

// LLMResult is the llm Kind's output.
type LLMResult struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Usage    struct {
		PromptChars     int `json:"prompt_chars"`
		CompletionChars int `json:"completion_chars"`
	} `json:"usage"`
}

type promptCarrier struct {
	FullText     string                  `json:"full_text"`
	TextPreview  string                  `json:"text_preview"`
	Response     string                  `json:"response"`
	Results      []model.RetrievalResult `json:"results"`
}

// NewLLM returns a Handler for model.KindLLM. Config "system_prompt" and
// "prompt" (or "prompt_template", with a "{input}" placeholder) compose
// the call; "model" is echoed in the result's Model field and is not
// passed to the ports.LLM call. The user prompt is completed from the
// single upstream node's output using the documented precedence: a
// "full_text" field, then "text_preview", then "response", then the
// concatenated text of the first "top_n" (default 5) retrieval results —
// whichever the upstream output carries first.
func NewLLM(llm ports.LLM) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, cfg model.Config, inputs registry.Inputs) (any, error) {
		if llm == nil {
			return nil, model.NewError(model.ErrInvalidConfig, "llm node requires a configured LLM port", nil)
		}

		upstreamText, err := resolveLLMContext(inputs, cfg.Int("top_n", 5))
		if err != nil {
			return nil, err
		}

		prompt := cfg.String("prompt")
		if template := cfg.String("prompt_template"); template != "" {
			prompt = strings.ReplaceAll(template, "{input}", upstreamText)
		} else if prompt == "" {
			prompt = upstreamText
		} else if upstreamText != "" {
			prompt = prompt + "\n\n" + upstreamText
		}
		if strings.TrimSpace(prompt) == "" {
			return nil, model.NewError(model.ErrMissingInput, "llm: empty prompt after composing upstream context", nil)
		}

		opts := ports.CompletionOptions{
			MaxTokens:   cfg.Int("max_tokens", 1024),
			Temperature: cfg.Float("temperature", 0),
		}
		resp, cerr := llm.Complete(ctx, cfg.String("system_prompt"), prompt, opts)
		if cerr != nil {
			return nil, model.NewError(model.ErrExternal, "llm completion failed", cerr)
		}

		out := LLMResult{Response: resp, Model: cfg.String("model")}
		out.Usage.PromptChars = len(prompt)
		out.Usage.CompletionChars = len(resp)
		return out, nil
	})
}

// resolveLLMContext implements the documented precedence for composing
// an llm node's user prompt from a single upstream node's output:
// full_text > text_preview > response > the first topN retrieval
// results' chunk text, newline-joined.
func resolveLLMContext(inputs registry.Inputs, topN int) (string, *model.Error) {
	upstream, ok := singleInput(inputs)
	if !ok {
		return "", nil
	}
	var pc promptCarrier
	if err := decode(upstream, &pc); err != nil {
		return "", model.NewError(model.ErrMissingInput, "llm: decoding upstream output", err)
	}
	if pc.FullText != "" {
		return pc.FullText, nil
	}
	if pc.TextPreview != "" {
		return pc.TextPreview, nil
	}
	if pc.Response != "" {
		return pc.Response, nil
	}
	if len(pc.Results) > 0 {
		if topN <= 0 {
			topN = 5
		}
		if topN > len(pc.Results) {
			topN = len(pc.Results)
		}
		parts := make([]string, topN)
		for i := 0; i < topN; i++ {
			parts[i] = fmt.Sprintf("[%d] %s", i+1, pc.Results[i].Chunk.Text)
		}
		return strings.Join(parts, "\n\n"), nil
	}
	return "", nil
}
