package config

import (
	"fmt"
	"os"
)

// ReviewsConfig configures the review API.
type ReviewsConfig struct {
	Port             string
	DBURL            string
	GoogleClientID   string
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	ReadTimeoutSecs  int
	WriteTimeoutSecs int
	DBMigrate        bool
}

// LoadReviews reads the review API configuration.
func LoadReviews() (ReviewsConfig, error) {
	cfg := ReviewsConfig{
		Port:             getEnv("PORT", "8081"),
		DBURL:            os.Getenv("REVIEWS_DB_URL"),
		GoogleClientID:   os.Getenv("GOOGLE_CLIENT_ID"),
		DBMaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ReadTimeoutSecs:  getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		DBMigrate:        getEnvBool("DB_MIGRATE"),
	}
	if cfg.DBURL == "" {
		return ReviewsConfig{}, fmt.Errorf("REVIEWS_DB_URL is required")
	}
	if cfg.GoogleClientID == "" {
		return ReviewsConfig{}, fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}
	if cfg.DBMaxOpenConns <= 0 {
		return ReviewsConfig{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be positive")
	}
	if cfg.DBMaxIdleConns < 0 || cfg.DBMaxIdleConns > cfg.DBMaxOpenConns {
		return ReviewsConfig{}, fmt.Errorf("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS")
	}
	return cfg, nil
}

// GatewayConfig configures the OAuth gateway and reverse proxy.
type GatewayConfig struct {
	Port               string
	MoviesURL          string
	ReviewsURL         string
	FrontendURL        string
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
	SuccessURL         string
	SessionSecret      string
	SessionTTLMins     int
	SecureCookies      bool
}

// LoadGateway reads the gateway configuration.
func LoadGateway() (GatewayConfig, error) {
	cfg := GatewayConfig{
		Port:               getEnv("PORT", "8000"),
		MoviesURL:          os.Getenv("MOVIES_URL"),
		ReviewsURL:         os.Getenv("REVIEWS_URL"),
		FrontendURL:        os.Getenv("FRONTEND_URL"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:        getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8000/login/oauth2/code/google"),
		SuccessURL:         getEnv("GATEWAY_SUCCESS_URL", "/"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		SessionTTLMins:     getEnvInt("SESSION_TTL_MINS", 60),
		SecureCookies:      getEnvBool("SECURE_COOKIES"),
	}
	required := []struct{ key, val string }{
		{"MOVIES_URL", cfg.MoviesURL},
		{"REVIEWS_URL", cfg.ReviewsURL},
		{"GOOGLE_CLIENT_ID", cfg.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret},
		{"SESSION_SECRET", cfg.SessionSecret},
	}
	for _, r := range required {
		if r.val == "" {
			return GatewayConfig{}, fmt.Errorf("%s is required", r.key)
		}
	}
	if len(cfg.SessionSecret) < 32 {
		return GatewayConfig{}, fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	if cfg.SessionTTLMins <= 0 {
		return GatewayConfig{}, fmt.Errorf("SESSION_TTL_MINS must be positive")
	}
	return cfg, nil
}

// MailerConfig configures the email worker.
type MailerConfig struct {
	AMQPURL           string
	Queue             string
	LogDBPath         string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	From              string
	RetryIntervalSecs int
	MaxAttempts       int
	SendsPerSecond    int
}

// LoadMailer reads the email worker configuration.
func LoadMailer() (MailerConfig, error) {
	cfg := MailerConfig{
		AMQPURL:           os.Getenv("AMQP_URL"),
		Queue:             getEnv("NOTIFY_QUEUE", "email_queue"),
		LogDBPath:         getEnv("MAILER_DB_PATH", "mailer.db"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		From:              getEnv("MAIL_FROM", "noreply@moviereviews.com"),
		RetryIntervalSecs: getEnvInt("MAILER_RETRY_INTERVAL_SECS", 300),
		MaxAttempts:       getEnvInt("MAILER_MAX_ATTEMPTS", 10),
		SendsPerSecond:    getEnvInt("MAILER_SENDS_PER_SECOND", 5),
	}
	if cfg.AMQPURL == "" {
		return MailerConfig{}, fmt.Errorf("AMQP_URL is required")
	}
	if cfg.SMTPHost == "" {
		return MailerConfig{}, fmt.Errorf("SMTP_HOST is required")
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return MailerConfig{}, fmt.Errorf("SMTP_PORT must be a valid port number")
	}
	if cfg.RetryIntervalSecs <= 0 {
		return MailerConfig{}, fmt.Errorf("MAILER_RETRY_INTERVAL_SECS must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		return MailerConfig{}, fmt.Errorf("MAILER_MAX_ATTEMPTS must be positive")
	}
	if cfg.SendsPerSecond <= 0 {
		return MailerConfig{}, fmt.Errorf("MAILER_SENDS_PER_SECOND must be positive")
	}
	return cfg, nil
}
