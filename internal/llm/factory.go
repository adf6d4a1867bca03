package llm

import (
	"fmt"
	"strings"

	"chatbot/internal/config"
)

const (
	ProviderOpenAI      = "openai"
	ProviderYandex      = "yandex"
	ProviderHuggingFace = "huggingface"
)

// Factory creates generation clients from configuration with a shared
// retry policy.
type Factory struct {
	cfg   *config.Config
	retry RetryPolicy
}

func NewFactory(cfg *config.Config) *Factory {
	retry := RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		Multiplier:  cfg.RetryMultiplier,
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Factory{cfg: cfg, retry: retry}
}

func (f *Factory) TextClient() (TextClient, error) {
	switch strings.ToLower(f.cfg.TextProvider) {
	case ProviderOpenAI:
		return NewOpenAI(f.cfg.OpenAIAPIKey, f.cfg.OpenAIBaseURL, f.cfg.OpenAIModel, f.cfg.OpenAIImageModel, f.retry), nil
	case ProviderYandex:
		return NewYandex(f.cfg.YandexOAuthToken, f.cfg.YandexFolderID, f.retry)
	default:
		return nil, fmt.Errorf("unknown text provider: %s", f.cfg.TextProvider)
	}
}

func (f *Factory) ImageClient() (ImageClient, error) {
	switch strings.ToLower(f.cfg.ImageProvider) {
	case ProviderHuggingFace:
		return NewHuggingFace(f.cfg.HFAPIKey, f.cfg.HFModel, f.retry), nil
	case ProviderOpenAI:
		return NewOpenAI(f.cfg.OpenAIAPIKey, f.cfg.OpenAIBaseURL, f.cfg.OpenAIModel, f.cfg.OpenAIImageModel, f.retry), nil
	default:
		return nil, fmt.Errorf("unknown image provider: %s", f.cfg.ImageProvider)
	}
}
