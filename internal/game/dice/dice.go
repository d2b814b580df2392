// Package dice implements the single-die wagers: over/under and exact face.
package dice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/game"
)

const (
	// DefaultMaxRounds is the default upper bound on rounds per session.
	DefaultMaxRounds = 10

	// ParamSide is the Params key for the over/under side.
	ParamSide = "side"
	// ParamFace is the Params key for the exact face.
	ParamFace = "face"

	SideOver  = "over"
	SideUnder = "under"
)

// Errors for dice games
var (
	ErrInvalidSide = errors.New("side must be over or under")
	ErrInvalidFace = errors.New("face must be between 1 and 6")
)

var (
	overMultiplier  = decimal.NewFromInt(2)
	exactMultiplier = decimal.NewFromInt(6)
)

// Config holds configuration shared by both dice games.
type Config struct {
	MaxRounds int
	Rand      game.Rand
}

func resolve(cfg *Config) (int, game.Rand) {
	maxRounds, rng := DefaultMaxRounds, game.DefaultRand
	if cfg != nil {
		if cfg.MaxRounds > 0 {
			maxRounds = cfg.MaxRounds
		}
		if cfg.Rand != nil {
			rng = cfg.Rand
		}
	}
	return maxRounds, rng
}

// Roll returns a uniform face in 1..6.
func Roll(rng game.Rand) int {
	return rng.IntN(6) + 1
}

// OverUnder pays 2x when the roll lands on the chosen half:
// over wins on 4-6, under wins on 1-3.
type OverUnder struct {
	maxRounds int
	rng       game.Rand
}

// NewOverUnder creates the over/under dice game.
func NewOverUnder(cfg *Config) *OverUnder {
	maxRounds, rng := resolve(cfg)
	return &OverUnder{maxRounds: maxRounds, rng: rng}
}

func (d *OverUnder) Variant() game.Variant { return game.VariantDiceOver }
func (d *OverUnder) Name() string          { return "Dice Over/Under" }
func (d *OverUnder) Description() string {
	return "Roll one die: over wins on 4-6, under wins on 1-3. Pays 2x."
}
func (d *OverUnder) MaxRounds() int   { return d.maxRounds }
func (d *OverUnder) ParamKey() string { return ParamSide }

func (d *OverUnder) Choices() []game.Choice {
	return []game.Choice{
		{ID: SideOver, Label: "Over (4-6)"},
		{ID: SideUnder, Label: "Under (1-3)"},
	}
}

// ValidateParams requires a side.
func (d *OverUnder) ValidateParams(params game.Params) error {
	if !game.HasChoice(d.Choices(), params[ParamSide]) {
		return ErrInvalidSide
	}
	return nil
}

func (d *OverUnder) MaxMultiplier(game.Params) decimal.Decimal { return overMultiplier }

// Play rolls the die.
func (d *OverUnder) Play(ctx context.Context, params game.Params) (*game.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.ValidateParams(params); err != nil {
		return nil, err
	}

	roll := Roll(d.rng)
	return &game.Outcome{
		Won:         WinsOverUnder(params[ParamSide], roll),
		Multiplier:  overMultiplier,
		Description: fmt.Sprintf("🎲 Rolled %d (%s)", roll, params[ParamSide]),
	}, nil
}

// WinsOverUnder reports whether roll wins for side.
func WinsOverUnder(side string, roll int) bool {
	if side == SideUnder {
		return roll <= 3
	}
	return roll > 3
}

// Exact pays 6x when the roll equals the chosen face.
type Exact struct {
	maxRounds int
	rng       game.Rand
}

// NewExact creates the exact-face dice game.
func NewExact(cfg *Config) *Exact {
	maxRounds, rng := resolve(cfg)
	return &Exact{maxRounds: maxRounds, rng: rng}
}

func (d *Exact) Variant() game.Variant { return game.VariantDiceExact }
func (d *Exact) Name() string          { return "Dice Exact" }
func (d *Exact) Description() string   { return "Pick a face 1-6. Hit it exactly for 6x." }
func (d *Exact) MaxRounds() int        { return d.maxRounds }
func (d *Exact) ParamKey() string      { return ParamFace }

func (d *Exact) Choices() []game.Choice {
	choices := make([]game.Choice, 0, 6)
	for face := 1; face <= 6; face++ {
		id := strconv.Itoa(face)
		choices = append(choices, game.Choice{ID: id, Label: id})
	}
	return choices
}

// ValidateParams requires a face in 1..6.
func (d *Exact) ValidateParams(params game.Params) error {
	face, err := strconv.Atoi(params[ParamFace])
	if err != nil || face < 1 || face > 6 {
		return ErrInvalidFace
	}
	return nil
}

func (d *Exact) MaxMultiplier(game.Params) decimal.Decimal { return exactMultiplier }

// Play rolls the die.
func (d *Exact) Play(ctx context.Context, params game.Params) (*game.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.ValidateParams(params); err != nil {
		return nil, err
	}

	face, _ := strconv.Atoi(params[ParamFace])
	roll := Roll(d.rng)
	return &game.Outcome{
		Won:         roll == face,
		Multiplier:  exactMultiplier,
		Description: fmt.Sprintf("🎲 Rolled %d (picked %d)", roll, face),
	}, nil
}
