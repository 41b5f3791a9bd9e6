package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8000"`

	// LLM settings (in-process interviewer engine)
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"llama-3.1-8b-instant"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// Collaborator endpoints. When InterviewServiceURL is empty the
	// in-process LLM-backed engine serves the interview protocol.
	InterviewServiceURL string `env:"INTERVIEW_SERVICE_URL"`
	FaceServiceURL      string `env:"FACE_SERVICE_URL" envDefault:"http://localhost:5000/api/detect-faces"`

	// Interview flow
	TotalQuestions int `env:"TOTAL_QUESTIONS" envDefault:"5"`

	// Proctoring policy
	SampleInterval     time.Duration `env:"SAMPLE_INTERVAL" envDefault:"100ms"`
	ViolationThreshold int           `env:"VIOLATION_THRESHOLD" envDefault:"5"`
	DeviceTimeout      time.Duration `env:"DEVICE_TIMEOUT" envDefault:"5s"`

	// Handoff display delays
	AnswerHandoffDelay    time.Duration `env:"ANSWER_HANDOFF_DELAY" envDefault:"5s"`
	SkipHandoffDelay      time.Duration `env:"SKIP_HANDOFF_DELAY" envDefault:"3s"`
	TerminateHandoffDelay time.Duration `env:"TERMINATE_HANDOFF_DELAY" envDefault:"3s"`

	// Storage
	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	ResultLogPath  string        `env:"RESULT_LOG_PATH" envDefault:"logs/results.jsonl"`
	JanitorSpec    string        `env:"JANITOR_SPEC" envDefault:"@every 5m"`
	MaxResumeBytes int64         `env:"MAX_RESUME_BYTES" envDefault:"16777216"`

	// Proctoring alerts (optional)
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AlertChatID      int64  `env:"ALERT_CHAT_ID"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
