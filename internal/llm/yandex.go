package llm

import (
	"context"
	"fmt"

	"github.com/Morwran/yagpt"
)

// YandexClient generates text via YandexGPT. Credentials are
// service-wide (OAuth token exchanged for an IAM token at startup);
// per-request keys are not supported by this provider.
type YandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
	retry    RetryPolicy
}

func NewYandex(oauthToken, folderID string, retry RetryPolicy) (*YandexClient, error) {
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create iam token: %w", err)
	}

	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}

	return &YandexClient{
		ya:       ya,
		iamToken: resp.IamToken,
		retry:    retry,
	}, nil
}

func (c *YandexClient) GenerateText(ctx context.Context, prompt string, _ Credentials) (Response, error) {
	messages := []yagpt.Message{{Role: "user", Content: prompt}}

	var out Response
	err := c.retry.Do(ctx, func() error {
		resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, messages)
		if err != nil {
			return wrap(KindModel, "yagpt completion failed", err)
		}
		if resp == nil || len(resp.Alternatives) == 0 {
			return Errf(KindModel, "yagpt returned empty response")
		}
		out = Response{Content: resp.Alternatives[0].Message.Content, Model: yagpt.YaModelLite}
		out.PromptTokens = int(resp.Usage.InputTextTokens)
		out.CompletionTokens = int(resp.Usage.CompletionTokens)
		out.TotalTokens = int(resp.Usage.TotalTokens)
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	return out, nil
}

var _ TextClient = (*YandexClient)(nil)
