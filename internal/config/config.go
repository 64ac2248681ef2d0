package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

// DefaultNudgeSchedule fires at 18:00 on workdays.
const DefaultNudgeSchedule = "0 18 * * 1-5"

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`

	LLMProvider       string `yaml:"llm_provider"`
	LLMModel          string `yaml:"llm_model"`
	LLMBaseURL        string `yaml:"llm_base_url"`
	LLMRetry          int    `yaml:"llm_retry"`
	LLMTimeoutSeconds int    `yaml:"llm_timeout_seconds"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`

	MaxInputChars       int      `yaml:"max_input_chars"`
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
	CORSAllowOrigins    []string `yaml:"cors_allow_origins"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
	SlackUserID    string `yaml:"slack_user_id"`
	NudgeSchedule  string `yaml:"nudge_schedule"`
	Timezone       string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.LLMBaseURL, "LLM_BASE_URL")
	envOverrideInt(&cfg.LLMRetry, "LLM_RETRY")
	envOverrideInt(&cfg.LLMTimeoutSeconds, "LLM_TIMEOUT_SECONDS")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverrideInt(&cfg.MaxInputChars, "MAX_INPUT_CHARS")
	envOverrideFloat(&cfg.SimilarityThreshold, "SIMILARITY_THRESHOLD")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.SlackUserID, "SLACK_USER_ID")
	nudgeSet := cfg.NudgeSchedule != ""
	if _, ok := os.LookupEnv("NUDGE_SCHEDULE"); ok {
		nudgeSet = true
	}
	envOverrideAllowEmpty(&cfg.NudgeSchedule, "NUDGE_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		cfg.CORSAllowOrigins = splitList(origins)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":5000"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./workpilot.db"
	}
	if cfg.LLMProvider == "" {
		switch {
		case cfg.OpenAIAPIKey != "":
			cfg.LLMProvider = ProviderOpenAI
		case cfg.AnthropicAPIKey != "":
			cfg.LLMProvider = ProviderAnthropic
		default:
			cfg.LLMProvider = ProviderMock
		}
	}
	if cfg.LLMRetry == 0 {
		cfg.LLMRetry = 2
	}
	if cfg.LLMTimeoutSeconds == 0 {
		cfg.LLMTimeoutSeconds = 30
	}
	if cfg.MaxInputChars == 0 {
		cfg.MaxInputChars = 20000
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.6
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if len(cfg.CORSAllowOrigins) == 0 {
		cfg.CORSAllowOrigins = []string{"http://localhost"}
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if !nudgeSet {
		cfg.NudgeSchedule = DefaultNudgeSchedule
	}
	if strings.EqualFold(strings.TrimSpace(cfg.NudgeSchedule), "off") {
		cfg.NudgeSchedule = ""
	}

	switch cfg.LLMProvider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case ProviderMock:
		log.Printf("WARNING: llm_provider=mock, generation endpoints return canned output")
	default:
		log.Fatalf("llm_provider must be 'openai', 'anthropic' or 'mock', got '%s'", cfg.LLMProvider)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.LLMRetry < 0 {
		log.Fatalf("invalid llm_retry '%d': must be >= 0", cfg.LLMRetry)
	}
	if cfg.LLMTimeoutSeconds < 1 {
		log.Fatalf("invalid llm_timeout_seconds '%d': must be >= 1", cfg.LLMTimeoutSeconds)
	}
	if cfg.MaxInputChars < 100 {
		log.Fatalf("invalid max_input_chars '%d': must be >= 100", cfg.MaxInputChars)
	}
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		log.Fatalf("invalid similarity_threshold '%f': must be between 0 and 1", cfg.SimilarityThreshold)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.NudgeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.NudgeSchedule); err != nil {
			log.Fatalf("invalid nudge_schedule '%s': %v", cfg.NudgeSchedule, err)
		}
	}
	if cfg.NudgeSchedule != "" && !cfg.SlackConfigured() {
		log.Printf("WARNING: nudge_schedule is set but Slack is not configured. Reminders are disabled.")
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SlackConfigured reports whether reminders have a token and somewhere to go.
func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && (c.SlackChannelID != "" || c.SlackUserID != "")
}

func (c Config) LLMConfigured() bool {
	return c.LLMProvider != ProviderMock
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// AllowOrigin matches an Origin header against the configured prefixes.
func (c Config) AllowOrigin(origin string) bool {
	for _, allowed := range c.CORSAllowOrigins {
		if allowed == "*" || strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}
