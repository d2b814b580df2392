package duel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"wager-bridge-bot/internal/game"
)

// deck deals the given ranks in order.
type deck struct {
	cards []int
	i     int
}

func (d *deck) IntN(int) int {
	c := d.cards[d.i%len(d.cards)]
	d.i++
	return c - 1
}

func (d *deck) Float64() float64 { return 0 }

func TestHandValue(t *testing.T) {
	tests := []struct {
		name  string
		cards []Card
		value int
		soft  bool
	}{
		{"two numbers", []Card{5, 9}, 14, false},
		{"faces count ten", []Card{11, 13}, 20, false},
		{"ace soft", []Card{1, 6}, 17, true},
		{"blackjack", []Card{1, 12}, 21, true},
		{"ace turns hard", []Card{1, 6, 9}, 16, false},
		{"two aces", []Card{1, 1}, 12, true},
		{"bust", []Card{10, 9, 5}, 24, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, soft := HandValue(tt.cards)
			assert.Equal(t, tt.value, v)
			assert.Equal(t, tt.soft, soft)
		})
	}
}

func TestHand_StandWins(t *testing.T) {
	// house draws 6 to reach 16+6 = 22 and busts
	h := NewHand(&deck{cards: []int{6}}, []Card{10, 9}, []Card{10, 6})

	done, err := h.Act(ActionStand)
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, h.Outcome().Won)
	assert.Equal(t, PhaseResolved, h.Phase())
}

func TestHand_HitBusts(t *testing.T) {
	h := NewHand(&deck{cards: []int{10}}, []Card{10, 6}, []Card{10, 7})

	done, err := h.Act(ActionHit)
	require.NoError(t, err)
	assert.True(t, done)
	assert.False(t, h.Outcome().Won)
	assert.False(t, h.Outcome().Push)
}

func TestHand_HitThenStand(t *testing.T) {
	h := NewHand(&deck{cards: []int{2}}, []Card{10, 6}, []Card{10, 8})

	done, err := h.Act(ActionHit)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Len(t, h.Actions(), 2)

	done, err = h.Act(ActionStand)
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, h.Outcome().Push, "18 vs 18 is a push")
}

func TestHand_HitToTwentyOneStandsAutomatically(t *testing.T) {
	h := NewHand(&deck{cards: []int{5}}, []Card{10, 6}, []Card{10, 9})

	done, err := h.Act(ActionHit)
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, h.Outcome().Won)
}

func TestHand_Errors(t *testing.T) {
	h := NewHand(&deck{cards: []int{2}}, []Card{10, 6}, []Card{10, 8})

	_, err := h.Act("double")
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = h.Act(ActionStand)
	require.NoError(t, err)
	_, err = h.Act(ActionHit)
	assert.ErrorIs(t, err, ErrHandClosed)
	assert.Nil(t, h.Actions())
}

func TestDuel_DealNaturalResolves(t *testing.T) {
	// player A K, house 10 7
	d := New(&Config{Rand: &deck{cards: []int{1, 13, 10, 7}}})
	h := d.Deal()
	assert.True(t, h.Done())
	assert.True(t, h.Outcome().Won)
}

func TestDuel_Interface(t *testing.T) {
	var r game.Interactive = New(nil)
	assert.Equal(t, game.VariantDuel, r.Variant())
	assert.Equal(t, 1, r.MaxRounds())
	_, err := r.Play(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUseInteractive)
}

// TestHouseDrawsToThresholdProperty checks that a resolved hand never leaves
// the house below 17 unless the player busted first.
func TestHouseDrawsToThresholdProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cards := rapid.SliceOfN(rapid.IntRange(1, 13), 4, 20).Draw(t, "cards")
		hits := rapid.IntRange(0, 3).Draw(t, "hits")

		h := New(&Config{Rand: &deck{cards: cards}}).Deal().(*Hand)
		for i := 0; i < hits && !h.Done(); i++ {
			if _, err := h.Act(ActionHit); err != nil {
				t.Fatalf("hit failed: %v", err)
			}
		}
		if !h.Done() {
			if _, err := h.Act(ActionStand); err != nil {
				t.Fatalf("stand failed: %v", err)
			}
		}

		pv, _ := HandValue(h.player)
		hv, _ := HandValue(h.house)
		if pv <= Blackjack && hv < DealerStandsOn {
			t.Fatalf("house stopped at %d with player on %d", hv, pv)
		}
		if h.Outcome() == nil {
			t.Fatal("resolved hand without outcome")
		}
	})
}
