package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the engine reads from the environment.
type Config struct {
	Port         string
	Environment  string
	JWTSecret    string
	JWTIssuer    string
	GraceWindow  time.Duration
	AMQPURL      string
	AMQPExchange string
	ArchiveDSN   string
	OTLPEndpoint string
	DebugRoutes  bool
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		Port:         getEnv("PORT", "8083"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:    getEnv("JWT_ISSUER", "chat-engine"),
		GraceWindow:  getDuration("DISCONNECT_GRACE_WINDOW", 5*time.Second),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "chat_events"),
		ArchiveDSN:   getEnv("ARCHIVE_DSN", ""),
		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
		DebugRoutes:  getBool("DEBUG_ROUTES", false),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
