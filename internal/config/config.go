package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// OpenAI
	OpenAIAPIKey string
	ModelName    string

	// Queue broker
	GoogleCloudProject string
	TopicID            string
	SubscriptionID     string

	// Gmail
	GmailCredentialsPath string
	GmailTokenPath       string

	// Outlook (client credentials against Microsoft identity platform)
	OutlookTenantID     string
	OutlookClientID     string
	OutlookClientSecret string

	// Ledger
	DatabasePath string

	// Pipeline settings
	PollInterval   time.Duration
	RecencyWindow  time.Duration
	ProviderRPS    float64
	MaxOutstanding int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		ModelName:            getEnv("MODEL_NAME", "gpt-4o-mini"),
		GoogleCloudProject:   getEnv("GOOGLE_CLOUD_PROJECT", ""),
		TopicID:              getEnv("TOPIC_ID", "delivery-jobs"),
		SubscriptionID:       getEnv("SUBSCRIPTION_ID", "delivery-jobs-worker"),
		GmailCredentialsPath: getEnv("GMAIL_CREDENTIALS_PATH", "credentials.json"),
		GmailTokenPath:       getEnv("GMAIL_TOKEN_PATH", "token.json"),
		OutlookTenantID:      getEnv("OUTLOOK_TENANT_ID", ""),
		OutlookClientID:      getEnv("OUTLOOK_CLIENT_ID", ""),
		OutlookClientSecret:  getEnv("OUTLOOK_CLIENT_SECRET", ""),
		DatabasePath:         getEnv("DATABASE_PATH", "autorespond.db"),
		PollInterval:         getDuration("POLL_INTERVAL", 10*time.Second),
		RecencyWindow:        getDuration("RECENCY_WINDOW", 100*time.Minute),
		ProviderRPS:          getFloat("PROVIDER_RPS", 5),
		MaxOutstanding:       getInt("MAX_OUTSTANDING_JOBS", 1),
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if cfg.GoogleCloudProject == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
	}

	return cfg, nil
}

// OutlookConfigured reports whether the Graph credentials are present. A
// missing provider keeps that poller from starting but does not stop the
// other one.
func (c *Config) OutlookConfigured() bool {
	return c.OutlookTenantID != "" && c.OutlookClientID != "" && c.OutlookClientSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid %s=%q, using default %s", key, value, defaultValue)
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid %s=%q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid %s=%q, using default %g", key, value, defaultValue)
	}
	return defaultValue
}
