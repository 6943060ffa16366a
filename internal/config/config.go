package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	BotToken   string
	GuildID    string
	DBPath     string
	ServerPort string
	LogLevel   string

	// AuditWebhookURL receives scoring/moderation notifications. Optional;
	// empty disables the webhook notifier.
	AuditWebhookURL string

	// NATSURL enables lifecycle event publishing when set.
	NATSURL string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		BotToken:        getEnv("BOT_TOKEN", ""),
		GuildID:         getEnv("GUILD_ID", ""),
		DBPath:          getEnv("DB_PATH", "zomire.db"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AuditWebhookURL: getEnv("AUDIT_WEBHOOK_URL", ""),
		NATSURL:         getEnv("NATS_URL", ""),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.GuildID == "" {
		return nil, fmt.Errorf("GUILD_ID is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("guild_id", cfg.GuildID).
		Bool("webhook_configured", cfg.AuditWebhookURL != "").
		Bool("nats_configured", cfg.NATSURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
