package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	LogMode string

	DatabaseURL string

	GeminiAPIKey    string
	AnalysisModel   string
	ClassifierModel string
	LLMTimeout      time.Duration

	ClerkIssuer              string
	ClerkAuthorizedParties   []string
	ClerkPreviewPartyPattern *regexp.Regexp

	AnalysisProtocolVersion     string
	JobPostingMaxAgeDays        int
	TrackedJobStaleDays         int
	MaxJobTextLength            int
	MaxClassificationTextLength int
	FetchTimeout                time.Duration
	ProbeTimeout                time.Duration

	SweepInterval  time.Duration
	SweepBatchSize int
	SweepRateLimit time.Duration

	AdminAPIKey        string
	CORSAllowedOrigins []string
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:    getEnv("PORT", "8080"),
		LogMode: getEnv("LOG_MODE", "development"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnalysisModel:   getEnv("GEMINI_ANALYSIS_MODEL", "gemini-1.5-pro-latest"),
		ClassifierModel: getEnv("GEMINI_CLASSIFIER_MODEL", "gemini-1.5-flash"),
		LLMTimeout:      time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,

		ClerkIssuer:            strings.TrimRight(os.Getenv("CLERK_ISSUER"), "/"),
		ClerkAuthorizedParties: splitList(os.Getenv("CLERK_AUTHORIZED_PARTIES")),

		AnalysisProtocolVersion:     getEnv("ANALYSIS_PROTOCOL_VERSION", "2.0"),
		JobPostingMaxAgeDays:        getEnvInt("JOB_POSTING_MAX_AGE_DAYS", 60),
		TrackedJobStaleDays:         getEnvInt("TRACKED_JOB_STALE_DAYS", 30),
		MaxJobTextLength:            getEnvInt("MAX_JOB_TEXT_LENGTH", 200000),
		MaxClassificationTextLength: getEnvInt("MAX_CLASSIFICATION_TEXT_LENGTH", 2000),
		FetchTimeout:                time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		ProbeTimeout:                time.Duration(getEnvInt("PROBE_TIMEOUT_SECONDS", 5)) * time.Second,

		SweepInterval:  time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 1440)) * time.Minute,
		SweepBatchSize: getEnvInt("SWEEP_BATCH_SIZE", 1000),
		SweepRateLimit: time.Duration(getEnvInt("SWEEP_RATE_LIMIT_MS", 500)) * time.Millisecond,

		AdminAPIKey:        os.Getenv("ADMIN_API_KEY"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if p := strings.TrimSpace(os.Getenv("CLERK_PREVIEW_PARTY_PATTERN")); p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return Config{}, fmt.Errorf("CLERK_PREVIEW_PARTY_PATTERN: %w", err)
		}
		cfg.ClerkPreviewPartyPattern = re
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.ClerkIssuer == "" {
		missing = append(missing, "CLERK_ISSUER")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.SweepBatchSize <= 0 || c.SweepBatchSize > 1000 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be in [1, 1000], got %d", c.SweepBatchSize)
	}
	return nil
}

func getEnv(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func getEnvInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
