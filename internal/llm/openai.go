package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient serves both capabilities: chat completions for text and
// the images endpoint for generation. Callers may override the API key
// per request; the client is otherwise stateless.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	imageModel string
	retry      RetryPolicy
}

func NewOpenAI(apiKey, baseURL, model, imageModel string, retry RetryPolicy) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		imageModel: imageModel,
		retry:      retry,
	}
}

func (c *OpenAIClient) clientFor(creds Credentials) (*openai.Client, error) {
	key := creds.APIKey
	if key == "" {
		key = c.apiKey
	}
	if key == "" {
		return nil, Errf(KindAuth, "no API key configured or supplied")
	}
	config := openai.DefaultConfig(key)
	if c.baseURL != "" {
		config.BaseURL = c.baseURL
	}
	return openai.NewClientWithConfig(config), nil
}

func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string, creds Credentials) (Response, error) {
	cl, err := c.clientFor(creds)
	if err != nil {
		return Response{}, err
	}
	var resp openai.ChatCompletionResponse
	err = c.retry.Do(ctx, func() error {
		var callErr error
		resp, callErr = cl.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if callErr != nil {
			return classifyOpenAIError(callErr)
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, Errf(KindModel, "completion returned no choices")
	}
	return Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            c.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string, creds Credentials) ([]byte, error) {
	cl, err := c.clientFor(creds)
	if err != nil {
		return nil, err
	}
	var resp openai.ImageResponse
	err = c.retry.Do(ctx, func() error {
		var callErr error
		resp, callErr = cl.CreateImage(ctx, openai.ImageRequest{
			Prompt:         prompt,
			Model:          c.imageModel,
			N:              1,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
		if callErr != nil {
			return classifyOpenAIError(callErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, Errf(KindModel, "image response carried no data")
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, wrap(KindModel, "decode image payload", err)
	}
	return raw, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return wrap(KindAuth, "provider rejected credentials", err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return wrap(KindRateLimited, "provider rate limit", err)
		case apiErr.HTTPStatusCode >= 500:
			return wrap(KindModel, "provider error", err)
		}
		return wrap(KindModel, "request rejected", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return wrap(KindTransient, "network failure", err)
	}
	return wrap(KindModel, "completion failed", err)
}

var _ TextClient = (*OpenAIClient)(nil)
var _ ImageClient = (*OpenAIClient)(nil)
