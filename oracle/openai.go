package oracle

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const providerOpenAI = "openai"

// OpenAIConfig configures an OpenAI compatible chat completion endpoint.
// OpenRouter works through BaseURL.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	// 0 оставляет значение по умолчанию сервера
	MaxTokens int

	HTTPClient *http.Client
}

// OpenAI sends every prompt as a single user message.
type OpenAI struct {
	client *openai.Client
	cnf    OpenAIConfig
	log    *zap.Logger
}

func NewOpenAI(log *zap.Logger, cnf OpenAIConfig) *OpenAI {
	cc := openai.DefaultConfig(cnf.APIKey)
	if cnf.BaseURL != "" {
		cc.BaseURL = cnf.BaseURL
	}
	if cnf.HTTPClient != nil {
		cc.HTTPClient = cnf.HTTPClient
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cc),
		cnf:    cnf,
		log:    log.Named("openai"),
	}
}

var _ Oracle = (*OpenAI)(nil)

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.cnf.Model,
		Temperature: o.cnf.Temperature,
		MaxTokens:   o.cnf.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}
	o.log.Debug("send completion request",
		zap.String("model", req.Model),
		zap.Int("prompt_length", len(prompt)))

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Err: err}
		}
		ce := &CallError{Provider: providerOpenAI, Err: err}
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		switch {
		case errors.As(err, &apiErr):
			ce.StatusCode = apiErr.HTTPStatusCode
		case errors.As(err, &reqErr):
			ce.StatusCode = reqErr.HTTPStatusCode
		}
		return "", ce
	}
	if len(resp.Choices) == 0 {
		return "", &CallError{Provider: providerOpenAI, Err: errors.New("response has no choices")}
	}

	o.log.Debug("completion received",
		zap.String("id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}
