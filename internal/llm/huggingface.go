package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

const hfEndpoint = "https://api-inference.huggingface.co/models/"

// HuggingFaceClient renders images through the hosted inference API.
// A 503 from the API means the model is still warming up, which gets
// its own failure kind so callers can tell users to retry later.
type HuggingFaceClient struct {
	httpc  *http.Client
	apiKey string
	model  string
	retry  RetryPolicy
}

func NewHuggingFace(apiKey, model string, retry RetryPolicy) *HuggingFaceClient {
	return &HuggingFaceClient{
		httpc:  &http.Client{Timeout: 30 * time.Second},
		apiKey: apiKey,
		model:  model,
		retry:  retry,
	}
}

func (c *HuggingFaceClient) GenerateImage(ctx context.Context, prompt string, creds Credentials) ([]byte, error) {
	key := creds.APIKey
	if key == "" {
		key = c.apiKey
	}
	if key == "" {
		return nil, Errf(KindAuth, "no API key configured or supplied")
	}

	body, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return nil, wrap(KindModel, "encode request", err)
	}

	var image []byte
	err = c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, hfEndpoint+c.model, bytes.NewReader(body))
		if err != nil {
			return wrap(KindModel, "build request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+key)

		resp, err := c.httpc.Do(req)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return wrap(KindTransient, "request timed out", err)
			}
			return wrap(KindTransient, "network failure", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusUnauthorized, http.StatusForbidden:
			return Errf(KindAuth, "invalid Hugging Face API key")
		case http.StatusTooManyRequests:
			return Errf(KindRateLimited, "inference API rate limit")
		case http.StatusServiceUnavailable:
			return Errf(KindModelLoading, "model is loading, try again shortly")
		default:
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return Errf(KindModel, "inference API error: status=%d, body=%s", resp.StatusCode, bytes.TrimSpace(snippet))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return wrap(KindTransient, "read response", err)
		}
		if len(data) == 0 {
			return Errf(KindModel, "no image data received")
		}
		image = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

var _ ImageClient = (*HuggingFaceClient)(nil)
