// Package wheel implements the three-color wheel: one rare color paying 12x
// and two common colors paying 2x.
package wheel

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/game"
)

const (
	// DefaultMaxRounds is the default upper bound on rounds per session.
	DefaultMaxRounds = 10

	// ParamColor is the Params key for the chosen color.
	ParamColor = "color"
)

// Colors on the wheel.
const (
	Green = "green"
	Red   = "red"
	Black = "black"
)

// ErrInvalidColor is returned for an unknown color choice.
var ErrInvalidColor = errors.New("color must be green, red or black")

// segment is one weighted slice of the wheel.
type segment struct {
	color      string
	label      string
	weight     float64
	multiplier decimal.Decimal
}

// segments are ordered; weights sum to 1.
var segments = []segment{
	{Green, "🟢 Green (12x)", 0.10, decimal.NewFromInt(12)},
	{Red, "🔴 Red (2x)", 0.45, decimal.NewFromInt(2)},
	{Black, "⚫ Black (2x)", 0.45, decimal.NewFromInt(2)},
}

// Wheel implements game.Resolver.
type Wheel struct {
	maxRounds int
	rng       game.Rand
}

// Config holds configuration for the wheel.
type Config struct {
	MaxRounds int
	Rand      game.Rand
}

// New creates a Wheel with the given configuration.
func New(cfg *Config) *Wheel {
	w := &Wheel{maxRounds: DefaultMaxRounds, rng: game.DefaultRand}
	if cfg != nil {
		if cfg.MaxRounds > 0 {
			w.maxRounds = cfg.MaxRounds
		}
		if cfg.Rand != nil {
			w.rng = cfg.Rand
		}
	}
	return w
}

func (w *Wheel) Variant() game.Variant { return game.VariantWheel }
func (w *Wheel) Name() string          { return "Color Wheel" }
func (w *Wheel) Description() string {
	return "Spin the wheel: green 10% pays 12x, red or black 45% pays 2x."
}
func (w *Wheel) MaxRounds() int   { return w.maxRounds }
func (w *Wheel) ParamKey() string { return ParamColor }

func (w *Wheel) Choices() []game.Choice {
	choices := make([]game.Choice, 0, len(segments))
	for _, s := range segments {
		choices = append(choices, game.Choice{ID: s.color, Label: s.label})
	}
	return choices
}

// ValidateParams requires a known color.
func (w *Wheel) ValidateParams(params game.Params) error {
	if _, ok := lookup(params[ParamColor]); !ok {
		return ErrInvalidColor
	}
	return nil
}

// MaxMultiplier returns the multiplier of the chosen color.
func (w *Wheel) MaxMultiplier(params game.Params) decimal.Decimal {
	if s, ok := lookup(params[ParamColor]); ok {
		return s.multiplier
	}
	return segments[0].multiplier
}

// Play spins the wheel.
func (w *Wheel) Play(ctx context.Context, params game.Params) (*game.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chosen, ok := lookup(params[ParamColor])
	if !ok {
		return nil, ErrInvalidColor
	}

	drawn := Spin(w.rng.Float64())
	return &game.Outcome{
		Won:         drawn == chosen.color,
		Multiplier:  chosen.multiplier,
		Description: fmt.Sprintf("🎡 The wheel landed on %s (you picked %s)", drawn, chosen.color),
	}, nil
}

// Spin maps a uniform draw in [0,1) to a color by cumulative weight.
func Spin(draw float64) string {
	cumulative := 0.0
	for _, s := range segments {
		cumulative += s.weight
		if draw < cumulative {
			return s.color
		}
	}
	return segments[len(segments)-1].color
}

func lookup(color string) (segment, bool) {
	for _, s := range segments {
		if s.color == color {
			return s, true
		}
	}
	return segment{}, false
}
