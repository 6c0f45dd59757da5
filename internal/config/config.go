package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	// LINE channel credentials
	LineChannelSecret string `env:"LINE_CHANNEL_SECRET,required"`
	LineChannelToken  string `env:"LINE_CHANNEL_ACCESS_TOKEN,required"`

	// HTTP server
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":5000"`
	BaseStaticURL string `env:"BASE_STATIC_URL" envDefault:"https://example.com/static/"`
	StaticDir     string `env:"STATIC_DIR" envDefault:"static"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// Exchange rates
	RateAPIBaseURL   string        `env:"RATE_API_BASE_URL" envDefault:"https://open.er-api.com/v6/latest"`
	RateBaseCurrency string        `env:"RATE_BASE_CURRENCY" envDefault:"TWD"`
	RateTTL          time.Duration `env:"RATE_TTL" envDefault:"24h"`
	RateFetchTimeout time.Duration `env:"RATE_FETCH_TIMEOUT" envDefault:"10s"`

	// Storage
	MembersFilePath  string `env:"MEMBERS_FILE_PATH" envDefault:"data/members.json"`
	DialogueLogPath  string `env:"DIALOGUE_LOG_PATH" envDefault:"logs/dialogue.jsonl"`
	QuizFilePath     string `env:"QUIZ_FILE_PATH" envDefault:"data/quiz_questions.json"`
	QuizTemplatePath string `env:"QUIZ_TEMPLATE_PATH" envDefault:"data/question_bubble_template.json"`
	LabelsFilePath   string `env:"LABELS_FILE_PATH" envDefault:"data/labels.yaml"`

	// Logging
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogProfile string `env:"LOG_PROFILE" envDefault:"prod"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !strings.HasSuffix(cfg.BaseStaticURL, "/") {
		cfg.BaseStaticURL += "/"
	}
	return cfg, nil
}
