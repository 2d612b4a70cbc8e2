package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Environment   string
	MetricsPort   string
	EnableMetrics bool

	// Discord configuration
	DiscordToken string
	DiscordAppID string
	GuildID      string

	// Database configuration (hosted Postgres)
	DatabaseURL string

	// Redis configuration (only needed for the redis rate limiter)
	RedisURL         string
	RateLimitBackend string

	// PubNub configuration (optional lifecycle event feed)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	EventsChannel      string

	// Payment instructions
	PayPalEmail string
	BTCWallet   string
	GiftCardURL string

	// Rate limits
	TicketCreateLimit int
	TicketCooldown    time.Duration
	MaxActiveTickets  int
	FileUploadLimit   int
	FileUploadWindow  time.Duration

	// Timers
	CloseGrace         time.Duration
	AutoCloseDelay     time.Duration
	StaffControlsDelay time.Duration
	RejectReplyTimeout time.Duration
	SweepInterval      time.Duration
}

func Load() *Config {
	return &Config{
		// Server
		Environment:   getEnv("ENVIRONMENT", "development"),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),

		// Discord
		DiscordToken: getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordAppID: getEnv("DISCORD_APP_ID", ""),
		GuildID:      getEnv("GUILD_ID", ""),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Redis
		RedisURL:         getEnv("REDIS_URL", ""),
		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "memory"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		EventsChannel:      getEnv("EVENTS_CHANNEL", "ticket-events"),

		// Payments
		PayPalEmail: getEnv("PAYPAL_EMAIL", ""),
		BTCWallet:   getEnv("BTC_WALLET", ""),
		GiftCardURL: getEnv("GIFTCARD_URL", ""),

		// Rate limits
		TicketCreateLimit: getEnvAsInt("TICKET_CREATE_LIMIT", 1),
		TicketCooldown:    getEnvAsDuration("TICKET_COOLDOWN", "5m"),
		MaxActiveTickets:  getEnvAsInt("MAX_ACTIVE_TICKETS", 3),
		FileUploadLimit:   getEnvAsInt("FILE_UPLOAD_LIMIT", 5),
		FileUploadWindow:  getEnvAsDuration("FILE_UPLOAD_WINDOW", "10m"),

		// Timers
		CloseGrace:         getEnvAsDuration("CLOSE_GRACE", "10s"),
		AutoCloseDelay:     getEnvAsDuration("AUTO_CLOSE_DELAY", "5m"),
		StaffControlsDelay: getEnvAsDuration("STAFF_CONTROLS_DELAY", "2s"),
		RejectReplyTimeout: getEnvAsDuration("REJECT_REPLY_TIMEOUT", "60s"),
		SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", "1h"),
	}
}

// Validate checks the variables the bot cannot start without.
func (c *Config) Validate() error {
	required := map[string]string{
		"DISCORD_BOT_TOKEN": c.DiscordToken,
		"DISCORD_APP_ID":    c.DiscordAppID,
		"GUILD_ID":          c.GuildID,
		"DATABASE_URL":      c.DatabaseURL,
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	if c.RateLimitBackend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("RATE_LIMIT_BACKEND=redis requires REDIS_URL")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, fall back to the default value.
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
