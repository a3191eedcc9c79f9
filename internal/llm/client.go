// Package llm calls the model backends competing in a battle through the
// OpenRouter chat-completions API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are an AI assistant participating in a battle arena. Your task is to provide the most helpful, accurate, and well-reasoned response to the user's question.

If relevant context is provided, use it to inform your response, but do not simply repeat the context. Synthesize the information and provide a thoughtful answer.`

// Invoker produces one model's answer to a prompt. Implementations must
// respect the context and return a typed *ModelInvocationError on failure.
type Invoker interface {
	Invoke(ctx context.Context, modelID, question, ragContext string) (string, error)
}

// ModelInvocationError reports an upstream model API failure.
type ModelInvocationError struct {
	ModelID    string
	StatusCode int
	Message    string
	Err        error
}

func (e *ModelInvocationError) Error() string {
	base := fmt.Sprintf("model %s invocation failed", e.ModelID)
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	return base
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline expiry, which maps to
// 504 at the HTTP boundary rather than 502.
func (e *ModelInvocationError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// OpenRouterClient invokes models through OpenRouter's OpenAI-compatible API.
type OpenRouterClient struct {
	client  *openai.Client
	timeout time.Duration
}

// headerTransport injects the attribution headers OpenRouter expects.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", t.referer)
	req.Header.Set("X-Title", t.title)
	return t.base.RoundTrip(req)
}

func NewOpenRouterClient(apiKey, baseURL, referer string, timeout time.Duration) *OpenRouterClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			referer: referer,
			title:   "LLM Battle Arena",
		},
	}

	return &OpenRouterClient{
		client:  openai.NewClientWithConfig(cfg),
		timeout: timeout,
	}
}

func (c *OpenRouterClient) Invoke(ctx context.Context, modelID, question, ragContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Context: %s\n\nQuestion: %s", ragContext, question)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", classifyError(modelID, err)
	}

	if len(resp.Choices) == 0 {
		return "", &ModelInvocationError{ModelID: modelID, Message: "no response choices returned"}
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyError normalizes go-openai errors into ModelInvocationError.
func classifyError(modelID string, err error) *ModelInvocationError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ModelInvocationError{
			ModelID:    modelID,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ModelInvocationError{
			ModelID:    modelID,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Err:        err,
		}
	}

	return &ModelInvocationError{ModelID: modelID, Message: err.Error(), Err: err}
}
