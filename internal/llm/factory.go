package llm

import (
	"fmt"
	"strings"

	"xiaojin-bot/internal/config"
)

// NewFromConfig builds the provider selected by configuration.
func NewFromConfig(cfg *config.Config) (Client, error) {
	switch strings.ToLower(string(cfg.LLMProvider)) {
	case string(config.ProviderOpenAI):
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case string(config.ProviderYandex):
		return NewYandex(cfg.YandexOAuthToken, cfg.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
