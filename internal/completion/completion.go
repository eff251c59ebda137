package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/chatbot-web/internal/config"
	"github.com/dom/chatbot-web/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	ErrTimeout    = errors.New("completion timed out")
	ErrEmptyReply = errors.New("completion returned no choices")
	ErrNoMessages = errors.New("completion requires at least one message")
)

// Completer produces the assistant's next message for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (*Reply, error)
}

type Reply struct {
	Content          string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float64 // negative leaves the API default
	SystemPrompt string
	Timeout      time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Model:        cfg.OpenAIModel,
		Temperature:  cfg.OpenAITemperature,
		SystemPrompt: cfg.SystemPrompt,
		Timeout:      cfg.CompletionTimeout,
	}
}

type OpenAIClient struct {
	client openai.Client
	opts   Options
}

func NewOpenAIClient(opts Options) *OpenAIClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		opts:   opts,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []domain.Message) (*Reply, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model:    c.opts.Model,
		Messages: toParams(c.opts.SystemPrompt, messages),
	}
	if c.opts.Temperature >= 0 {
		params.Temperature = openai.Float(c.opts.Temperature)
	}

	res, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", ErrTimeout, c.opts.Timeout, err)
		}
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(res.Choices) == 0 {
		return nil, ErrEmptyReply
	}

	return &Reply{
		Content:          res.Choices[0].Message.Content,
		Model:            res.Model,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
	}, nil
}

func toParams(systemPrompt string, messages []domain.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		params = append(params, openai.SystemMessage(systemPrompt))
	}
	for _, m := range messages {
		switch m.Role {
		case domain.RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	return params
}
