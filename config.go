package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the fulfillment service.
type Config struct {
	Port             string
	Env              string
	RedisURL         string
	KafkaBrokers     string
	OrderEventsTopic string
	SNSTopicARN      string
	InternalAPIToken string

	BillingTimezone     string
	BillingBaseRate     int64 // cents per billed order
	BillingPerUnitRate  int64 // cents per unit beyond the first
	BillingWeightCeilKg float64
	BillingDueInDays    int
}

// BillingLocation resolves the fixed reference timezone for monthly billing.
func (c *Config) BillingLocation() (*time.Location, error) {
	return time.LoadLocation(c.BillingTimezone)
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8094"),
		Env:              getEnv("APP_ENV", "development"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "fulfillment.events"),
		SNSTopicARN:      os.Getenv("BILLING_SNS_TOPIC_ARN"),
		InternalAPIToken: os.Getenv("INTERNAL_API_TOKEN"),

		BillingTimezone:     getEnv("BILLING_TIMEZONE", "UTC"),
		BillingBaseRate:     getEnvInt64("BILLING_BASE_RATE_CENTS", 250),
		BillingPerUnitRate:  getEnvInt64("BILLING_PER_UNIT_CENTS", 75),
		BillingWeightCeilKg: getEnvFloat("BILLING_WEIGHT_CEILING_KG", 30),
		BillingDueInDays:    int(getEnvInt64("BILLING_DUE_IN_DAYS", 15)),
	}

	if cfg.InternalAPIToken == "" {
		return nil, fmt.Errorf("INTERNAL_API_TOKEN is required")
	}
	if _, err := cfg.BillingLocation(); err != nil {
		return nil, fmt.Errorf("invalid BILLING_TIMEZONE: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}
