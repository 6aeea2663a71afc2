package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/upb/math-agent/services/providers"
)

// Adapter implements the Provider interface for any OpenAI-compatible
// chat completions API (OpenAI, Groq, local gateways).
type Adapter struct {
	name   string
	config providers.ProviderConfig
	client *goopenai.Client
}

// NewAdapter creates a new adapter registered under name. An empty BaseURL
// targets the public OpenAI endpoint.
func NewAdapter(name string, config providers.ProviderConfig) *Adapter {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.OrgID = config.OrgID
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Adapter{
		name:   name,
		config: config,
		client: goopenai.NewClientWithConfig(clientConfig),
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.name
}

// ChatCompletion performs a chat completion request, retrying transient
// failures up to MaxRetries times.
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	if a.config.APIKey == "" {
		return nil, providers.NewProviderError(a.name, providers.CodeNotConfigured, "API key is not configured", 0, false, nil)
	}
	if req.Model == "" {
		return nil, providers.NewProviderError(a.name, providers.CodeInvalidModel, "model is required", 400, false, nil)
	}

	startTime := time.Now()
	openaiReq := buildRequest(req)

	var lastErr error
	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(a.config.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, a.mapError(ctx, ctx.Err())
			}
		}

		resp, err := a.client.CreateChatCompletion(ctx, openaiReq)
		if err == nil {
			if len(resp.Choices) == 0 {
				return nil, providers.NewProviderError(a.name, providers.CodeEmptyResponse, "response contained no choices", http.StatusOK, false, nil)
			}
			return a.convertResponse(resp, time.Since(startTime)), nil
		}

		lastErr = a.mapError(ctx, err)
		if !providers.IsRetryable(lastErr) || ctx.Err() != nil {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func buildRequest(req *providers.ChatRequest) goopenai.ChatCompletionRequest {
	messages := make([]goopenai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Stop:        req.Stop,
		User:        req.User,
	}
}

func (a *Adapter) convertResponse(resp goopenai.ChatCompletionResponse, latency time.Duration) *providers.ChatResponse {
	out := &providers.ChatResponse{
		ID:       resp.ID,
		Model:    resp.Model,
		Provider: a.name,
		Choices:  make([]providers.Choice, len(resp.Choices)),
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Latency: latency,
		Created: time.Unix(resp.Created, 0),
	}

	for i, choice := range resp.Choices {
		out.Choices[i] = providers.Choice{
			Index: choice.Index,
			Message: providers.Message{
				Role:    choice.Message.Role,
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		}
	}

	return out
}

// mapError converts client and context failures into ProviderErrors.
func (a *Adapter) mapError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return providers.NewProviderError(a.name, providers.CodeTimeout, "request deadline exceeded", 0, false, err)
	case errors.Is(err, context.Canceled):
		return providers.NewProviderError(a.name, providers.CodeCanceled, "request canceled", 0, false, err)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return providers.NewProviderError(a.name, providers.CodeHTTPError, apiErr.Message, apiErr.HTTPStatusCode, retryableStatus(apiErr.HTTPStatusCode), err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return providers.NewProviderError(a.name, providers.CodeHTTPError, "request failed", reqErr.HTTPStatusCode, retryableStatus(reqErr.HTTPStatusCode), err)
	}

	// Network-level failures carry no status and are worth another attempt.
	return providers.NewProviderError(a.name, providers.CodeHTTPError, "HTTP request failed", 0, true, err)
}

func retryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}
