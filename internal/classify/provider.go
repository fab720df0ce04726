package classify

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/searchwise/termlens/internal/model"
	"github.com/searchwise/termlens/pkg/anthropic"
	"github.com/searchwise/termlens/pkg/gemini"
	"github.com/searchwise/termlens/pkg/openai"
)

// Completion is a provider-agnostic generation result: the raw text plus
// token usage. Providers that omit usage report zeros.
type Completion struct {
	Text  string
	Usage model.TokenUsage
}

// Completer is the uniform provider surface the driver classifies through.
// The implementation is chosen once at configuration time by provider
// enum, never by inspecting model-name substrings.
type Completer interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// CompleterConfig carries everything needed to build one provider adapter.
type CompleterConfig struct {
	Provider  model.Provider
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// zero temperature keeps classifications reproducible across runs.
var zeroTemperature = 0.0

// NewCompleter builds the adapter for the configured provider.
func NewCompleter(cfg CompleterConfig) Completer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}

	switch cfg.Provider {
	case model.ProviderAnthropic:
		var opts []anthropic.Option
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return &anthropicCompleter{
			client:    anthropic.NewClient(cfg.APIKey, opts...),
			model:     cfg.Model,
			maxTokens: int64(cfg.MaxTokens),
		}
	case model.ProviderGemini:
		opts := []gemini.Option{gemini.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
		}
		return &geminiCompleter{
			client:    gemini.NewClient(cfg.APIKey, opts...),
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
		}
	default:
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return &openaiCompleter{
			client:    openai.NewClient(cfg.APIKey, opts...),
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
		}
	}
}

type openaiCompleter struct {
	client    openai.Client
	model     string
	maxTokens int
}

func (c *openaiCompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	resp, err := c.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &zeroTemperature,
		MaxTokens:   &c.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, asRetryable(&ProviderError{Provider: "openai", StatusCode: apiErr.StatusCode, Body: apiErr.Body})
		}
		return nil, err
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return &Completion{
		Text: text,
		Usage: model.TokenUsage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}, nil
}

type anthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func (c *anthropicCompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &zeroTemperature,
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, asRetryable(&ProviderError{Provider: "anthropic", StatusCode: apiErr.StatusCode, Body: apiErr.Error()})
		}
		return nil, err
	}

	return &Completion{
		Text: resp.Text(),
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

type geminiCompleter struct {
	client    gemini.Client
	model     string
	maxTokens int
}

func (c *geminiCompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	// The generateContent surface has no separate system slot on this
	// request shape; fold the instructions into the single user turn.
	resp, err := c.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Model: c.model,
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: system + "\n\n" + user}}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     &zeroTemperature,
			MaxOutputTokens: &c.maxTokens,
		},
	})
	if err != nil {
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			return nil, asRetryable(&ProviderError{Provider: "gemini", StatusCode: apiErr.StatusCode, Body: apiErr.Body})
		}
		return nil, err
	}

	var text string
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	return &Completion{
		Text: text,
		Usage: model.TokenUsage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		},
	}, nil
}
