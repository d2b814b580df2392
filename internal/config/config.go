// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Interactive channel transports.
const (
	TransportDiscord  = "discord"
	TransportTelegram = "telegram"
)

// Config holds all application configuration.
type Config struct {
	Channel  ChannelConfig  `mapstructure:"channel"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	World    WorldConfig    `mapstructure:"world"`
	Session  SessionConfig  `mapstructure:"session"`
	Games    GamesConfig    `mapstructure:"games"`
	Report   ReportConfig   `mapstructure:"report"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

// ChannelConfig selects the interactive channel.
type ChannelConfig struct {
	Transport     string `mapstructure:"transport"`
	CommandPrefix string `mapstructure:"command_prefix"`
}

// DiscordConfig holds Discord bot configuration.
type DiscordConfig struct {
	Token   string `mapstructure:"token"`
	OwnerID string `mapstructure:"owner_id"`
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	OwnerID int64  `mapstructure:"owner_id"`
}

// WorldConfig holds the game-world link configuration.
type WorldConfig struct {
	RelayURL          string          `mapstructure:"relay_url"`
	BotName           string          `mapstructure:"bot_name"`
	PayCommand        string          `mapstructure:"pay_command"`
	BalanceCommand    string          `mapstructure:"balance_command"`
	IdleInterval      time.Duration   `mapstructure:"idle_interval"`
	BalancePollDelay  time.Duration   `mapstructure:"balance_poll_delay"`
	ReconnectDelay    time.Duration   `mapstructure:"reconnect_delay"`
	ReconnectMaxDelay time.Duration   `mapstructure:"reconnect_max_delay"`
	AutoStart         bool            `mapstructure:"auto_start"`
	Broadcast         BroadcastConfig `mapstructure:"broadcast"`
}

// BroadcastConfig holds the periodic promotional message.
type BroadcastConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Message  string        `mapstructure:"message"`
}

// SessionConfig holds wager session policy.
type SessionConfig struct {
	HouseEdge     float64       `mapstructure:"house_edge"`
	PoolSize      int           `mapstructure:"pool_size"`
	RoundDelay    time.Duration `mapstructure:"round_delay"`
	CleanupDelay  time.Duration `mapstructure:"cleanup_delay"`
	MarkerPhrases []string      `mapstructure:"marker_phrases"`
}

// GamesConfig holds per-variant configuration.
type GamesConfig struct {
	CoinFlip  GameConfig `mapstructure:"coinflip"`
	DiceOver  GameConfig `mapstructure:"dice"`
	DiceExact GameConfig `mapstructure:"exact"`
	Wheel     GameConfig `mapstructure:"wheel"`
	// Duel is always one round; only Enabled applies.
	Duel GameConfig `mapstructure:"duel"`
}

// GameConfig holds configuration for one variant.
type GameConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	MaxRounds int  `mapstructure:"max_rounds"`
}

// ReportConfig holds where testimonials are published.
type ReportConfig struct {
	ChannelID string `mapstructure:"channel_id"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the
// testimonial archive. The archive is disabled when Enabled is false.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// HTTPConfig holds the keep-alive HTTP server configuration.
type HTTPConfig struct {
	Addr             string        `mapstructure:"addr"`
	SelfPingURL      string        `mapstructure:"self_ping_url"`
	SelfPingInterval time.Duration `mapstructure:"self_ping_interval"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, "." and "./config". A .env file in
// the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DISCORD_TOKEN, WORLD_RELAY_URL, SESSION_HOUSE_EDGE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("channel.transport", TransportDiscord)
	v.SetDefault("channel.command_prefix", "!")

	v.SetDefault("world.pay_command", "/pay {target} {amount}")
	v.SetDefault("world.balance_command", "/bal")
	v.SetDefault("world.idle_interval", "30s")
	v.SetDefault("world.balance_poll_delay", "5s")
	v.SetDefault("world.reconnect_delay", "10s")
	v.SetDefault("world.reconnect_max_delay", "5m")
	v.SetDefault("world.auto_start", false)
	v.SetDefault("world.broadcast.enabled", true)
	v.SetDefault("world.broadcast.interval", "3m")
	v.SetDefault("world.broadcast.message",
		"🎰 [COINFLIP] Double your money! 50/50 odds, only 4% fee! Type !coinflip on our Discord! 🎲")

	v.SetDefault("session.house_edge", 0.04)
	v.SetDefault("session.pool_size", 1)
	v.SetDefault("session.round_delay", "1500ms")
	v.SetDefault("session.cleanup_delay", "10s")
	v.SetDefault("session.marker_phrases", []string{"paid you", "received"})

	v.SetDefault("games.coinflip.enabled", true)
	v.SetDefault("games.coinflip.max_rounds", 10)
	v.SetDefault("games.dice.enabled", true)
	v.SetDefault("games.dice.max_rounds", 10)
	v.SetDefault("games.exact.enabled", true)
	v.SetDefault("games.exact.max_rounds", 10)
	v.SetDefault("games.wheel.enabled", true)
	v.SetDefault("games.wheel.max_rounds", 10)
	v.SetDefault("games.duel.enabled", true)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wagerbot")
	v.SetDefault("database.name", "wagerbot")
	v.SetDefault("database.pool_size", 4)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.self_ping_interval", "14m")
}

// Validate checks values that would otherwise fail deep inside the bot.
func (c *Config) Validate() error {
	switch c.Channel.Transport {
	case TransportDiscord, TransportTelegram:
	default:
		return fmt.Errorf("unknown channel transport %q", c.Channel.Transport)
	}
	if c.Session.HouseEdge < 0 || c.Session.HouseEdge >= 1 {
		return errors.New("session.house_edge must be in [0, 1)")
	}
	if c.Session.PoolSize < 1 {
		return errors.New("session.pool_size must be at least 1")
	}
	if !strings.Contains(c.World.PayCommand, "{target}") || !strings.Contains(c.World.PayCommand, "{amount}") {
		return errors.New("world.pay_command must contain {target} and {amount}")
	}
	if c.World.BalancePollDelay < 0 {
		return errors.New("world.balance_poll_delay must not be negative")
	}
	if c.Games.Duel.MaxRounds > 1 {
		return errors.New("games.duel.max_rounds: a duel is always one round")
	}
	return nil
}

// IsOwner checks if a Discord user is the operator.
func (c *Config) IsOwner(userID string) bool {
	return c.Discord.OwnerID != "" && c.Discord.OwnerID == userID
}

// IsTelegramOwner checks if a Telegram user is the operator.
func (c *Config) IsTelegramOwner(userID int64) bool {
	return c.Telegram.OwnerID != 0 && c.Telegram.OwnerID == userID
}
