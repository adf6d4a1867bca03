package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type HistoryBackend string

const (
	BackendMemory HistoryBackend = "memory"
	BackendFile   HistoryBackend = "file"
	BackendSQLite HistoryBackend = "sqlite"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Text generation
	TextProvider     string `env:"TEXT_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// Image generation
	ImageProvider    string `env:"IMAGE_PROVIDER" envDefault:"huggingface"`
	HFAPIKey         string `env:"HF_API_KEY"`
	HFModel          string `env:"HF_MODEL" envDefault:"stabilityai/stable-diffusion-3.5-large-turbo"`
	OpenAIImageModel string `env:"OPENAI_IMAGE_MODEL" envDefault:"dall-e-3"`

	// Conversation history
	HistoryBackend  HistoryBackend `env:"HISTORY_BACKEND" envDefault:"file"`
	HistoryFilePath string         `env:"HISTORY_FILE_PATH" envDefault:"data/history.json"`
	HistoryDBPath   string         `env:"HISTORY_DB_PATH" envDefault:"data/history.db"`
	MaxHistory      int            `env:"MAX_HISTORY" envDefault:"50"`
	RecentWindow    int            `env:"RECENT_WINDOW" envDefault:"5"`

	// Permanent context, JSON object of fact name to fact value
	PermanentContextJSON string `env:"PERMANENT_CONTEXT" envDefault:"{}"`

	// Users and sessions
	UsersFilePath string        `env:"USERS_FILE_PATH" envDefault:"data/users.json"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Usage audit
	UsageLogPath string `env:"USAGE_LOG_PATH" envDefault:"logs/usage.jsonl"`

	// Bootstrap admin, created at startup when not present yet
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Rate-limit retry policy for generation calls
	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"500ms"`
	RetryMultiplier  float64       `env:"RETRY_MULTIPLIER" envDefault:"2.0"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
