// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// BudgetConfig provides settings for the global send budget governor.
type BudgetConfig interface {
	GetDailySendLimit() int
	GetPauseThreshold() float64
	GetHardStopThreshold() float64
}

// PacingConfig provides settings for recipient and campaign pacing.
type PacingConfig interface {
	GetColdCooldown() time.Duration
	GetReactivationCooldown() time.Duration
	GetBatchSize() int
	GetInterSendDelay() time.Duration
}

// EmailConfig provides settings for the SMTP transport.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetOpsEmailAddress() string
}

// AIConfig provides settings for the content generation client.
type AIConfig interface {
	GetOpenAIAPIKey() string
	GetOpenAIBaseURL() string
	GetOpenAIModel() string
	IsAIEnabled() bool
}

// SchedulerConfig provides settings for the asynq scheduler bridge.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// OrchestratorConfig provides tick intervals for the automation modules.
type OrchestratorConfig interface {
	GetDiscoveryInterval() time.Duration
	GetNurtureInterval() time.Duration
	GetConversationInterval() time.Duration
	GetRevenueInterval() time.Duration
	GetClientSuccessInterval() time.Duration
	GetStartStagger() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	CORSAllowAll          bool
	CORSOrigins           []string
	DailySendLimit        int
	PauseThreshold        float64
	HardStopThreshold     float64
	ColdCooldown          time.Duration
	ReactivationCooldown  time.Duration
	BatchSize             int
	InterSendDelay        time.Duration
	DiscoveryInterval     time.Duration
	NurtureInterval       time.Duration
	ConversationInterval  time.Duration
	RevenueInterval       time.Duration
	ClientSuccessInterval time.Duration
	StartStagger          time.Duration
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	OpsEmailAddress       string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModel           string
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// BudgetConfig implementation
func (c *Config) GetDailySendLimit() int        { return c.DailySendLimit }
func (c *Config) GetPauseThreshold() float64    { return c.PauseThreshold }
func (c *Config) GetHardStopThreshold() float64 { return c.HardStopThreshold }

// PacingConfig implementation
func (c *Config) GetColdCooldown() time.Duration         { return c.ColdCooldown }
func (c *Config) GetReactivationCooldown() time.Duration { return c.ReactivationCooldown }
func (c *Config) GetBatchSize() int                      { return c.BatchSize }
func (c *Config) GetInterSendDelay() time.Duration       { return c.InterSendDelay }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetOpsEmailAddress() string  { return c.OpsEmailAddress }

// AIConfig implementation
func (c *Config) GetOpenAIAPIKey() string  { return c.OpenAIAPIKey }
func (c *Config) GetOpenAIBaseURL() string { return c.OpenAIBaseURL }
func (c *Config) GetOpenAIModel() string   { return c.OpenAIModel }
func (c *Config) IsAIEnabled() bool        { return c.OpenAIAPIKey != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// OrchestratorConfig implementation
func (c *Config) GetDiscoveryInterval() time.Duration     { return c.DiscoveryInterval }
func (c *Config) GetNurtureInterval() time.Duration       { return c.NurtureInterval }
func (c *Config) GetConversationInterval() time.Duration  { return c.ConversationInterval }
func (c *Config) GetRevenueInterval() time.Duration       { return c.RevenueInterval }
func (c *Config) GetClientSuccessInterval() time.Duration { return c.ClientSuccessInterval }
func (c *Config) GetStartStagger() time.Duration          { return c.StartStagger }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	smtpHost := getEnv("SMTP_HOST", "")

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		DailySendLimit:        mustInt(getEnv("DAILY_SEND_LIMIT", "200")),
		PauseThreshold:        mustFloat(getEnv("BUDGET_PAUSE_THRESHOLD", "0.70")),
		HardStopThreshold:     mustFloat(getEnv("BUDGET_HARD_STOP_THRESHOLD", "1.00")),
		ColdCooldown:          mustDuration(getEnv("COLD_COOLDOWN", "72h")),
		ReactivationCooldown:  mustDuration(getEnv("REACTIVATION_COOLDOWN", "336h")),
		BatchSize:             mustInt(getEnv("PACING_BATCH_SIZE", "10")),
		InterSendDelay:        mustDuration(getEnv("INTER_SEND_DELAY", "300ms")),
		DiscoveryInterval:     mustDuration(getEnv("DISCOVERY_INTERVAL", "10m")),
		NurtureInterval:       mustDuration(getEnv("NURTURE_INTERVAL", "2m")),
		ConversationInterval:  mustDuration(getEnv("CONVERSATION_INTERVAL", "1m")),
		RevenueInterval:       mustDuration(getEnv("REVENUE_INTERVAL", "5m")),
		ClientSuccessInterval: mustDuration(getEnv("CLIENT_SUCCESS_INTERVAL", "24h")),
		StartStagger:          mustDuration(getEnv("MODULE_START_STAGGER", "2s")),
		EmailEnabled:          emailEnabled && smtpHost != "",
		SMTPHost:              smtpHost,
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Outreach"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		OpsEmailAddress:       getEnv("OPS_EMAIL_ADDRESS", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "outreach"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DailySendLimit <= 0 {
		return nil, fmt.Errorf("DAILY_SEND_LIMIT must be a positive integer")
	}
	if cfg.PauseThreshold <= 0 || cfg.PauseThreshold > cfg.HardStopThreshold {
		return nil, fmt.Errorf("BUDGET_PAUSE_THRESHOLD must be in (0, hard stop]")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
