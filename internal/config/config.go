package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"op-pipeline-backend/internal/stages"
)

type Config struct {
	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database
	DatabaseURL string

	// Production line
	StageSequence             string
	StageMeasureFrom          string
	AllowArbitraryTransitions bool

	// Ingestion
	PDFMaxPages int
	MaxUploadMB int

	// Server
	Port        string
	Environment string
	BaseURL     string
	LogLevel    string
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	sequence := getEnv("STAGE_SEQUENCE", strings.Join(stages.DefaultSequence().Stages, ","))

	cfg := &Config{
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "op-documents"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		StageSequence:             sequence,
		StageMeasureFrom:          getEnv("STAGE_MEASURE_FROM", defaultMeasureFrom(sequence)),
		AllowArbitraryTransitions: getEnvBool("ALLOW_ARBITRARY_TRANSITIONS", true),

		PDFMaxPages: getEnvInt("PDF_MAX_PAGES", 1),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 20),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.IsProduction() && c.SupabaseJWTSecret == "" {
		errs = append(errs, fmt.Errorf("SUPABASE_JWT_SECRET is required in production"))
	}
	if c.SupabaseURL != "" && c.SupabasePublishableKey == "" {
		errs = append(errs, fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required when SUPABASE_URL is set"))
	}
	if _, err := c.Sequence(); err != nil {
		errs = append(errs, fmt.Errorf("STAGE_SEQUENCE: %w", err))
	}
	if c.PDFMaxPages < 0 {
		errs = append(errs, fmt.Errorf("PDF_MAX_PAGES must not be negative"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive"))
	}
	return errors.Join(errs...)
}

// Sequence parses the configured production line.
func (c *Config) Sequence() (stages.Sequence, error) {
	return stages.ParseSequence(c.StageSequence, c.StageMeasureFrom)
}

func (c *Config) Policy() stages.Policy {
	return stages.Policy{AllowArbitraryTransitions: c.AllowArbitraryTransitions}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AuthEnabled is false only when no JWT secret is configured.
func (c *Config) AuthEnabled() bool {
	return c.SupabaseJWTSecret != ""
}

// StorageEnabled reports whether uploaded PDFs are kept in Supabase Storage.
func (c *Config) StorageEnabled() bool {
	return c.SupabaseURL != "" && c.SupabasePublishableKey != ""
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// defaultMeasureFrom is the default line's measured stage when the configured
// sequence has it, otherwise empty so elapsed time counts from intake.
func defaultMeasureFrom(sequence string) string {
	measure := stages.DefaultSequence().MeasureFrom
	for _, name := range strings.Split(sequence, ",") {
		if strings.TrimSpace(name) == measure {
			return measure
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
