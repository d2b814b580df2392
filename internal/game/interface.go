// Package game defines the wager resolvers and their registry.
// Each variant only decides outcomes; stakes, payouts and the round loop
// belong to the session that drives it.
package game

import (
	"context"
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// Variant identifies a game type (e.g. "coinflip").
type Variant string

// Known variants.
const (
	VariantCoinFlip  Variant = "coinflip"
	VariantDiceOver  Variant = "dice"
	VariantDiceExact Variant = "exact"
	VariantWheel     Variant = "wheel"
	VariantDuel      Variant = "duel"
)

// Params holds the variant-specific choices a player made (e.g. color, side).
type Params map[string]string

// Choice is one selectable option offered to the player.
type Choice struct {
	ID    string
	Label string
}

// Outcome is the result of one resolved round.
type Outcome struct {
	Won         bool
	Push        bool            // stake returned, neither won nor lost
	Multiplier  decimal.Decimal // gross payout multiplier applied on a win
	Description string
}

// Resolver is implemented by every game variant.
type Resolver interface {
	// Variant returns the identifier used to request the game.
	Variant() Variant

	// Name returns the display name.
	Name() string

	// Description returns a one-line rules summary.
	Description() string

	// MaxRounds returns the largest round count a player may choose.
	// A value of 1 means the round count is fixed and never prompted.
	MaxRounds() int

	// ParamKey returns the Params key the player must choose, or "" when
	// the variant takes no parameter.
	ParamKey() string

	// Choices lists the valid values for ParamKey.
	Choices() []Choice

	// ValidateParams returns nil when params are acceptable for Play.
	ValidateParams(params Params) error

	// MaxMultiplier returns the largest gross multiplier a single round can
	// pay for the given params. Used for the house balance check.
	MaxMultiplier(params Params) decimal.Decimal

	// Play resolves one round.
	Play(ctx context.Context, params Params) (*Outcome, error)
}

// Hand is an interactive round driven by player actions (card-duel).
type Hand interface {
	// View describes the visible state of the hand.
	View() string

	// Actions lists the choices available while the hand is open.
	Actions() []Choice

	// Act applies a player action. It returns true once the hand is resolved.
	Act(action string) (bool, error)

	// Done reports whether the hand has been resolved.
	Done() bool

	// Outcome returns the result; nil until Done.
	Outcome() *Outcome
}

// Interactive is a resolver whose single round is played through a Hand
// instead of one Play call.
type Interactive interface {
	Resolver

	// Deal starts a new hand.
	Deal() Hand
}

// Rand is the randomness source used by resolvers.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand draws from the goroutine-safe global math/rand/v2 source.
var DefaultRand Rand = globalRand{}

// HasChoice reports whether id is one of choices.
func HasChoice(choices []Choice, id string) bool {
	for _, c := range choices {
		if c.ID == id {
			return true
		}
	}
	return false
}
