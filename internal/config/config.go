// Package config loads per-service runtime configuration from environment
// variables. Every service shares the ambient fields (HTTP server timeouts,
// bus brokers, KV address); each then layers on the handful it alone needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Base holds the configuration every one of the five services loads,
// regardless of which domain-specific fields it also needs.
type Base struct {
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	BusBrokers []string
	KVAddr     string
}

func loadBase() Base {
	return Base{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		BusBrokers:      strings.Split(getEnv("BUS_BROKERS", "localhost:9092"), ","),
		KVAddr:          getEnv("KV_ADDR", "localhost:6379"),
	}
}

// CommandConfig is the Command Service's configuration: it owns the task
// database, schedules reminders, and drains the outbox.
type CommandConfig struct {
	Base

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	SchedulerBaseURL string
	SchedulerTimeout time.Duration

	OutboxInterval time.Duration
	OutboxBatch    int

	JWTSecret string
}

func LoadCommand() (*CommandConfig, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &CommandConfig{
		Base:        loadBase(),
		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		SchedulerBaseURL: getEnv("SCHEDULER_BASE_URL", "http://scheduler:9000"),
		SchedulerTimeout: getDuration("SCHEDULER_TIMEOUT", 5*time.Second),

		OutboxInterval: getDuration("OUTBOX_INTERVAL", 2*time.Second),
		OutboxBatch:    getInt("OUTBOX_BATCH", 100),

		JWTSecret: secret,
	}, nil
}

// RecurringConfig is the Recurring-Task Service's configuration: it
// consumes task-events and calls the Command Service's internal endpoints.
type RecurringConfig struct {
	Base

	CommandBaseURL string
	CommandTimeout time.Duration
	ConsumerGroup  string
	PoolSize       int
}

func LoadRecurring() (*RecurringConfig, error) {
	return &RecurringConfig{
		Base:           loadBase(),
		CommandBaseURL: getEnv("COMMAND_BASE_URL", "http://command-service:8080"),
		CommandTimeout: getDuration("COMMAND_TIMEOUT", 5*time.Second),
		ConsumerGroup:  getEnv("CONSUMER_GROUP", "recurring-service"),
		PoolSize:       getInt("POOL_SIZE", 5),
	}, nil
}

// NotificationConfig is the Notification Service's configuration: it has
// no database, only the scheduler callback, the bus, and the KV store.
type NotificationConfig struct {
	Base

	SchedulerBaseURL string
	SchedulerTimeout time.Duration
	ConsumerGroup    string
	PoolSize         int
}

func LoadNotification() (*NotificationConfig, error) {
	return &NotificationConfig{
		Base:             loadBase(),
		SchedulerBaseURL: getEnv("SCHEDULER_BASE_URL", "http://scheduler:9000"),
		SchedulerTimeout: getDuration("SCHEDULER_TIMEOUT", 5*time.Second),
		ConsumerGroup:    getEnv("CONSUMER_GROUP", "notification-service"),
		PoolSize:         getInt("POOL_SIZE", 5),
	}, nil
}

// GatewayConfig is the WebSocket Gateway's configuration. InstanceID
// uniquely identifies this replica for the broadcast subscription. It is
// not used for connection presence: the hub records its own host name.
type GatewayConfig struct {
	Base

	InstanceID string
	JWTSecret  string
}

func LoadGateway() (*GatewayConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return &GatewayConfig{
		Base:       loadBase(),
		InstanceID: getEnv("INSTANCE_ID", hostnameOrDefault()),
		JWTSecret:  secret,
	}, nil
}

// AuditConfig is the Audit Service's configuration: it owns its own
// database, separate from the Command Service's.
type AuditConfig struct {
	Base

	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	ConsumerGroup string
	PoolSize      int
}

func LoadAudit() (*AuditConfig, error) {
	dbURL := os.Getenv("AUDIT_DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("AUDIT_DATABASE_URL is required")
	}
	return &AuditConfig{
		Base:          loadBase(),
		DatabaseURL:   dbURL,
		DBMaxConns:    int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:    int32(getInt("DB_MIN_CONNS", 5)),
		ConsumerGroup: getEnv("CONSUMER_GROUP", "audit-service"),
		PoolSize:      getInt("POOL_SIZE", 5),
	}, nil
}

func hostnameOrDefault() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "gateway-0"
	}
	return h
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
