// Package duel implements the card duel: a hit/stand hand against the house,
// scored like blackjack with soft aces. The house draws until it reaches 17.
package duel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/game"
)

const (
	// DealerStandsOn is the value at which the house stops drawing.
	DealerStandsOn = 17

	// Blackjack is the best possible hand value.
	Blackjack = 21

	ActionHit   = "hit"
	ActionStand = "stand"
)

// Errors for the duel
var (
	ErrHandClosed     = errors.New("hand is already resolved")
	ErrUnknownAction  = errors.New("action must be hit or stand")
	ErrUseInteractive = errors.New("duel is played through Deal")
)

var multiplier = decimal.NewFromInt(2)

// Card is a rank 1..13 (ace..king).
type Card int

// Value returns the hard value of the card: aces 1, faces 10.
func (c Card) Value() int {
	if c >= 10 {
		return 10
	}
	return int(c)
}

func (c Card) String() string {
	switch c {
	case 1:
		return "A"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	default:
		return fmt.Sprintf("%d", int(c))
	}
}

// HandValue scores cards counting aces as 11 while that does not bust.
// The second result reports whether an ace is still counted as 11.
func HandValue(cards []Card) (int, bool) {
	total, aces := 0, 0
	for _, c := range cards {
		total += c.Value()
		if c == 1 {
			aces++
		}
	}
	soft := false
	if aces > 0 && total+10 <= Blackjack {
		total += 10
		soft = true
	}
	return total, soft
}

// Duel implements game.Interactive. Its round count is fixed at 1.
type Duel struct {
	rng game.Rand
}

// Config holds configuration for the duel.
type Config struct {
	Rand game.Rand
}

// New creates a Duel.
func New(cfg *Config) *Duel {
	d := &Duel{rng: game.DefaultRand}
	if cfg != nil && cfg.Rand != nil {
		d.rng = cfg.Rand
	}
	return d
}

func (d *Duel) Variant() game.Variant { return game.VariantDuel }
func (d *Duel) Name() string          { return "Card Duel" }
func (d *Duel) Description() string {
	return "Hit or stand against the house. Closest to 21 wins 2x, the house stands on 17."
}
func (d *Duel) MaxRounds() int                             { return 1 }
func (d *Duel) ParamKey() string                           { return "" }
func (d *Duel) Choices() []game.Choice                     { return nil }
func (d *Duel) ValidateParams(game.Params) error           { return nil }
func (d *Duel) MaxMultiplier(game.Params) decimal.Decimal { return multiplier }

// Play is not supported; the duel needs player decisions.
func (d *Duel) Play(context.Context, game.Params) (*game.Outcome, error) {
	return nil, ErrUseInteractive
}

// Deal starts a new hand: two cards each, one house card visible.
func (d *Duel) Deal() game.Hand {
	h := &Hand{rng: d.rng}
	h.player = []Card{h.draw(), h.draw()}
	h.house = []Card{h.draw(), h.draw()}
	if v, _ := HandValue(h.player); v == Blackjack {
		h.stand()
	}
	return h
}

// Phase of a hand.
type Phase int

const (
	PhaseAccumulating Phase = iota
	PhaseResolved
)

// Hand is one duel in progress.
type Hand struct {
	rng     game.Rand
	player  []Card
	house   []Card
	phase   Phase
	outcome *game.Outcome
}

// NewHand builds a hand from fixed cards. Intended for replaying or testing
// specific deals; further draws come from rng.
func NewHand(rng game.Rand, player, house []Card) *Hand {
	return &Hand{rng: rng, player: player, house: house}
}

func (h *Hand) draw() Card {
	return Card(h.rng.IntN(13) + 1)
}

// Phase returns the current phase.
func (h *Hand) Phase() Phase { return h.phase }

// Done reports whether the hand is resolved.
func (h *Hand) Done() bool { return h.phase == PhaseResolved }

// Outcome returns the result once resolved.
func (h *Hand) Outcome() *game.Outcome { return h.outcome }

// Actions lists hit and stand while the hand is open.
func (h *Hand) Actions() []game.Choice {
	if h.Done() {
		return nil
	}
	return []game.Choice{
		{ID: ActionHit, Label: "Hit"},
		{ID: ActionStand, Label: "Stand"},
	}
}

// View shows the player's hand and the visible house card, or both full
// hands once resolved.
func (h *Hand) View() string {
	pv, _ := HandValue(h.player)
	if !h.Done() {
		return fmt.Sprintf("🃏 Your hand: %s (%d)\nHouse shows: %s", cardsString(h.player), pv, h.house[0])
	}
	hv, _ := HandValue(h.house)
	return fmt.Sprintf("🃏 Your hand: %s (%d)\nHouse hand: %s (%d)", cardsString(h.player), pv, cardsString(h.house), hv)
}

// Act applies hit or stand.
func (h *Hand) Act(action string) (bool, error) {
	if h.Done() {
		return true, ErrHandClosed
	}

	switch action {
	case ActionHit:
		h.player = append(h.player, h.draw())
		v, _ := HandValue(h.player)
		switch {
		case v > Blackjack:
			h.resolve()
		case v == Blackjack:
			h.stand()
		}
	case ActionStand:
		h.stand()
	default:
		return false, ErrUnknownAction
	}
	return h.Done(), nil
}

// stand lets the house draw to its threshold and resolves.
func (h *Hand) stand() {
	for {
		v, _ := HandValue(h.house)
		if v >= DealerStandsOn {
			break
		}
		h.house = append(h.house, h.draw())
	}
	h.resolve()
}

// resolve settles the hand. A bust player loses even if the house also
// busts. Equal totals are a push: the session returns the stake with no
// house edge, the one case where the payout grows without a win.
func (h *Hand) resolve() {
	h.phase = PhaseResolved
	pv, _ := HandValue(h.player)
	hv, _ := HandValue(h.house)

	out := &game.Outcome{Multiplier: multiplier}
	switch {
	case pv > Blackjack:
		out.Description = fmt.Sprintf("💥 Bust with %d. The house wins.", pv)
	case hv > Blackjack:
		out.Won = true
		out.Description = fmt.Sprintf("✨ The house busts with %d. You win!", hv)
	case pv > hv:
		out.Won = true
		out.Description = fmt.Sprintf("✨ %d beats %d. You win!", pv, hv)
	case pv == hv:
		out.Push = true
		out.Description = fmt.Sprintf("🤝 Both on %d. Push, your stake is returned.", pv)
	default:
		out.Description = fmt.Sprintf("💀 %d loses to %d.", pv, hv)
	}
	h.outcome = out
}

func cardsString(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
