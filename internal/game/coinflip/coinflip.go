// Package coinflip implements the 50/50 coin-flip wager.
package coinflip

import (
	"context"

	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/game"
)

const (
	// DefaultMaxRounds is the default upper bound on rounds per session.
	DefaultMaxRounds = 10
)

var multiplier = decimal.NewFromInt(2)

// CoinFlip implements game.Resolver.
type CoinFlip struct {
	maxRounds int
	rng       game.Rand
}

// Config holds configuration for the coin-flip game.
type Config struct {
	MaxRounds int
	Rand      game.Rand
}

// New creates a CoinFlip with the given configuration.
func New(cfg *Config) *CoinFlip {
	c := &CoinFlip{maxRounds: DefaultMaxRounds, rng: game.DefaultRand}
	if cfg != nil {
		if cfg.MaxRounds > 0 {
			c.maxRounds = cfg.MaxRounds
		}
		if cfg.Rand != nil {
			c.rng = cfg.Rand
		}
	}
	return c
}

func (c *CoinFlip) Variant() game.Variant { return game.VariantCoinFlip }
func (c *CoinFlip) Name() string          { return "Coinflip" }
func (c *CoinFlip) Description() string   { return "Double your money! 50/50 odds." }
func (c *CoinFlip) MaxRounds() int        { return c.maxRounds }
func (c *CoinFlip) ParamKey() string      { return "" }
func (c *CoinFlip) Choices() []game.Choice {
	return nil
}

// ValidateParams accepts anything; the coin takes no parameters.
func (c *CoinFlip) ValidateParams(game.Params) error { return nil }

// MaxMultiplier always returns 2.
func (c *CoinFlip) MaxMultiplier(game.Params) decimal.Decimal { return multiplier }

// Play flips the coin.
func (c *CoinFlip) Play(ctx context.Context, _ game.Params) (*game.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	won := c.rng.Float64() < 0.5
	description := "💀 YOU LOST."
	if won {
		description = "✨ YOU WON!"
	}
	return &game.Outcome{
		Won:         won,
		Multiplier:  multiplier,
		Description: description,
	}, nil
}
