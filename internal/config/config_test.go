package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, TransportDiscord, cfg.Channel.Transport)
	assert.Equal(t, "!", cfg.Channel.CommandPrefix)
	assert.Equal(t, 0.04, cfg.Session.HouseEdge)
	assert.Equal(t, 1, cfg.Session.PoolSize)
	assert.Equal(t, 1500*time.Millisecond, cfg.Session.RoundDelay)
	assert.Equal(t, 10*time.Second, cfg.Session.CleanupDelay)
	assert.Equal(t, []string{"paid you", "received"}, cfg.Session.MarkerPhrases)
	assert.Equal(t, "/pay {target} {amount}", cfg.World.PayCommand)
	assert.Equal(t, 30*time.Second, cfg.World.IdleInterval)
	assert.Equal(t, 3*time.Minute, cfg.World.Broadcast.Interval)
	assert.Equal(t, 10, cfg.Games.CoinFlip.MaxRounds)
	assert.Zero(t, cfg.Games.Duel.MaxRounds)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, ":3000", cfg.HTTP.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	yaml := `
channel:
  transport: telegram
session:
  house_edge: 0.05
  pool_size: 2
world:
  relay_url: ws://localhost:9000/relay
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("WORLD_BOT_NAME", "HouseBot")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, TransportTelegram, cfg.Channel.Transport)
	assert.Equal(t, 0.05, cfg.Session.HouseEdge)
	assert.Equal(t, 2, cfg.Session.PoolSize)
	assert.Equal(t, "ws://localhost:9000/relay", cfg.World.RelayURL)
	assert.Equal(t, "HouseBot", cfg.World.BotName)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Channel: ChannelConfig{Transport: TransportDiscord},
			Session: SessionConfig{HouseEdge: 0.04, PoolSize: 1},
			World:   WorldConfig{PayCommand: "/pay {target} {amount}"},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Channel.Transport = "irc"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Session.HouseEdge = 1
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Session.PoolSize = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.World.PayCommand = "/pay {target}"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.World.BalancePollDelay = 0
	assert.NoError(t, cfg.Validate(), "zero delay polls right after spawn")
	cfg.World.BalancePollDelay = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Games.Duel.MaxRounds = 1
	assert.NoError(t, cfg.Validate())
	cfg.Games.Duel.MaxRounds = 3
	assert.Error(t, cfg.Validate())
}

func TestIsOwner(t *testing.T) {
	cfg := &Config{
		Discord:  DiscordConfig{OwnerID: "42"},
		Telegram: TelegramConfig{OwnerID: 7},
	}
	assert.True(t, cfg.IsOwner("42"))
	assert.False(t, cfg.IsOwner("43"))
	assert.True(t, cfg.IsTelegramOwner(7))
	assert.False(t, cfg.IsTelegramOwner(8))

	empty := &Config{}
	assert.False(t, empty.IsOwner(""))
	assert.False(t, empty.IsTelegramOwner(0))
}

func TestDSN(t *testing.T) {
	d := &DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, Name: "n"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", d.DSN())
}
