package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken    string         `yaml:"discord_token"`
	DatabasePath    string         `yaml:"database_path"`
	LogLevel        string         `yaml:"log_level"`
	AuditLogChannel string         `yaml:"audit_log_channel"`
	Health          HealthConfig   `yaml:"health"`
	Vote            VoteConfig     `yaml:"vote"`
	RustMaps        RustMapsConfig `yaml:"rustmaps"`
	Antispam        AntispamConfig `yaml:"antispam"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type VoteConfig struct {
	ChannelID        string `yaml:"channel_id"`
	CandidateCount   int    `yaml:"candidate_count"`
	MapSize          int    `yaml:"map_size"`
	SingleChoice     bool   `yaml:"single_choice"`
	AutoSchedule     bool   `yaml:"auto_schedule"`
	StartOffsetHours int    `yaml:"start_offset_hours"`
	EndOffsetHours   int    `yaml:"end_offset_hours"`
}

type RustMapsConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	PollSeconds    int    `yaml:"poll_seconds"`
	MaxWaitMinutes int    `yaml:"max_wait_minutes"`
}

type AntispamConfig struct {
	Enabled            bool   `yaml:"enabled"`
	SpamMessages       int    `yaml:"spam_messages"`
	SpamWindowSeconds  int    `yaml:"spam_window_seconds"`
	CrossChannels      int    `yaml:"cross_channels"`
	CrossWindowSeconds int    `yaml:"cross_window_seconds"`
	MinMessageLength   int    `yaml:"min_message_length"`
	BanRoleName        string `yaml:"ban_role_name"`
	LogChannelName     string `yaml:"log_channel_name"`
	BanChannelName     string `yaml:"ban_channel_name"`
	MemberRoleName     string `yaml:"member_role_name"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/winr8te.db",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		Vote: VoteConfig{
			CandidateCount:   3,
			MapSize:          3500,
			SingleChoice:     true,
			AutoSchedule:     true,
			StartOffsetHours: 48,
			EndOffsetHours:   2,
		},
		RustMaps: RustMapsConfig{
			BaseURL:        "https://api.rustmaps.com/v4",
			PollSeconds:    30,
			MaxWaitMinutes: 30,
		},
		Antispam: AntispamConfig{
			Enabled:            true,
			SpamMessages:       5,
			SpamWindowSeconds:  10,
			CrossChannels:      3,
			CrossWindowSeconds: 10,
			MinMessageLength:   1,
			BanRoleName:        "ban",
			LogChannelName:     "support-log",
			BanChannelName:     "vous-etes-banni",
			MemberRoleName:     "Rust",
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.Vote.CandidateCount < 3 || cfg.Vote.CandidateCount > 4 {
		return Config{}, errors.New("vote.candidate_count must be 3 or 4")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.AuditLogChannel = envString("AUDIT_LOG_CHANNEL", cfg.AuditLogChannel)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Vote.ChannelID = envString("VOTE_CHANNEL_ID", cfg.Vote.ChannelID)
	cfg.Vote.CandidateCount = envInt("VOTE_CANDIDATE_COUNT", cfg.Vote.CandidateCount)
	cfg.Vote.MapSize = envInt("VOTE_MAP_SIZE", cfg.Vote.MapSize)
	cfg.Vote.SingleChoice = envBool("VOTE_SINGLE_CHOICE", cfg.Vote.SingleChoice)
	cfg.Vote.AutoSchedule = envBool("VOTE_AUTO_SCHEDULE", cfg.Vote.AutoSchedule)
	cfg.RustMaps.APIKey = envString("RUSTMAPS_API_KEY", cfg.RustMaps.APIKey)
	cfg.RustMaps.BaseURL = envString("RUSTMAPS_API_URL", cfg.RustMaps.BaseURL)
	cfg.Antispam.Enabled = envBool("ANTISPAM_ENABLED", cfg.Antispam.Enabled)
	cfg.Antispam.SpamMessages = envInt("SPAM_MESSAGES", cfg.Antispam.SpamMessages)
	cfg.Antispam.SpamWindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.Antispam.SpamWindowSeconds)
	cfg.Antispam.CrossChannels = envInt("CROSS_SPAM_CHANNELS", cfg.Antispam.CrossChannels)
	cfg.Antispam.CrossWindowSeconds = envInt("CROSS_SPAM_WINDOW_SECONDS", cfg.Antispam.CrossWindowSeconds)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
