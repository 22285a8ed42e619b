package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	// Survey backend
	SurveyAPIBaseURL     string
	TotalQuestions       int
	DefaultUserID        string
	DefaultNumericUserID int64

	// Answered-question registry storage. Driver is sqlite for normal
	// per-machine installs, postgres for shared lab/kiosk deployments.
	RegistryDriver string
	RegistryDSN    string

	// Question cache; empty RedisURL disables it
	RedisURL         string
	QuestionCacheTTL time.Duration

	// Registry reset cadence (cron spec); empty disables scheduled resets
	ResetCron string

	// CORS origins allowed to call the local facade (extension + viewers)
	AllowedOrigins []string

	// Offline fallback question served when the fetch fails
	FallbackQuestionID      uint
	FallbackQuestionContent string

	// Casdoor identity source; disabled when Endpoint is empty
	CasdoorEndpoint     string
	CasdoorClientID     string
	CasdoorClientSecret string
	CasdoorCertificate  string
	CasdoorOrganization string
	CasdoorApplication  string

	Events EventConfig
}

func LoadConfig() (*Config, error) {
	// A missing .env is fine; production configures through the process
	// environment.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		SurveyAPIBaseURL:     getEnv("SURVEY_API_BASE_URL", "https://port-0-naega-mia4lxbq959f2b64.sel3.cloudtype.app"),
		TotalQuestions:       getEnvInt("SURVEY_TOTAL_QUESTIONS", 10),
		DefaultUserID:        getEnv("SURVEY_DEFAULT_USER_ID", "1"),
		DefaultNumericUserID: getEnvInt64("SURVEY_DEFAULT_NUMERIC_USER_ID", 1),

		RegistryDriver: getEnv("REGISTRY_DRIVER", "sqlite"),
		RegistryDSN:    getEnv("REGISTRY_DSN", "survey-registry.db"),

		RedisURL:         getEnv("REDIS_URL", ""),
		QuestionCacheTTL: getEnvDuration("QUESTION_CACHE_TTL", 5*time.Minute),

		ResetCron: getEnv("REGISTRY_RESET_CRON", "0 0 * * *"),

		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"chrome-extension://*"}),

		FallbackQuestionID:      uint(getEnvInt("FALLBACK_QUESTION_ID", 999)),
		FallbackQuestionContent: getEnv("FALLBACK_QUESTION_CONTENT", "지금 가장 해결하고 싶은 고민이 있다면 적어주세요."),

		CasdoorEndpoint:     getEnv("CASDOOR_ENDPOINT", ""),
		CasdoorClientID:     getEnv("CASDOOR_CLIENT_ID", ""),
		CasdoorClientSecret: getEnv("CASDOOR_CLIENT_SECRET", ""),
		CasdoorCertificate:  getEnv("CASDOOR_CERTIFICATE", ""),
		CasdoorOrganization: getEnv("CASDOOR_ORGANIZATION", ""),
		CasdoorApplication:  getEnv("CASDOOR_APPLICATION", ""),

		Events: EventConfig{
			Enabled:      getEnvBool("EVENTS_ENABLED", false),
			Publisher:    getEnv("EVENTS_PUBLISHER", "kafka"),
			KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
			SurveyTopic:  getEnv("SURVEY_EVENTS_TOPIC", "survey-events"),
		},
	}, nil
}

// CasdoorEnabled reports whether the Casdoor identity source is configured.
func (c *Config) CasdoorEnabled() bool {
	return c.CasdoorEndpoint != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
