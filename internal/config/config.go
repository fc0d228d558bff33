package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       string
	JWTAccessExpiry time.Duration

	// Admin
	AdminEmails string
	AdminToken  string

	// Scheduler
	ObligationSpec     string
	ReminderSpec       string
	MaxRunDuration     time.Duration
	RunTimeout         time.Duration
	SchedulerWorkers   int
	ReminderWindowDays int
	SchedulerAutoStart bool

	// Notifications (AMQP optional; slog fallback when unset)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	// Missing .env is fine in production; env vars win either way.
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "finmate"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTAccessExpiry: parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),

		ObligationSpec:     getEnv("OBLIGATION_CRON", "0 6 * * *"),
		ReminderSpec:       getEnv("REMINDER_CRON", "0 10 * * *"),
		MaxRunDuration:     parseDuration(getEnv("MAX_RUN_DURATION", "30m")),
		RunTimeout:         parseDuration(getEnv("RUN_TIMEOUT", "10m")),
		SchedulerWorkers:   parseInt(getEnv("SCHEDULER_WORKERS", "4")),
		ReminderWindowDays: parseInt(getEnv("REMINDER_WINDOW_DAYS", "7")),
		SchedulerAutoStart: getEnv("SCHEDULER_AUTOSTART", "true") == "true",

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finmate.notifications"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notification-events"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
