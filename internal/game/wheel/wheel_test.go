package wheel

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"wager-bridge-bot/internal/game"
)

type fixedRand struct {
	f float64
}

func (r fixedRand) IntN(int) int     { return 0 }
func (r fixedRand) Float64() float64 { return r.f }

func TestSpin(t *testing.T) {
	tests := []struct {
		draw float64
		want string
	}{
		{0, Green},
		{0.0999, Green},
		{0.10, Red},
		{0.54, Red},
		{0.56, Black},
		{0.9999, Black},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Spin(tt.draw), "draw %v", tt.draw)
	}
}

func TestWheel_Play(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		draw       float64
		color      string
		won        bool
		multiplier int64
	}{
		{"green hit", 0.05, Green, true, 12},
		{"green miss", 0.30, Green, false, 12},
		{"red hit", 0.30, Red, true, 2},
		{"black hit", 0.80, Black, true, 2},
		{"black miss on green", 0.05, Black, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(&Config{Rand: fixedRand{tt.draw}})
			out, err := w.Play(ctx, game.Params{ParamColor: tt.color})
			require.NoError(t, err)
			assert.Equal(t, tt.won, out.Won)
			assert.True(t, decimal.NewFromInt(tt.multiplier).Equal(out.Multiplier))
		})
	}
}

func TestWheel_InvalidColor(t *testing.T) {
	w := New(nil)
	assert.ErrorIs(t, w.ValidateParams(game.Params{ParamColor: "blue"}), ErrInvalidColor)
	_, err := w.Play(context.Background(), game.Params{})
	assert.ErrorIs(t, err, ErrInvalidColor)
}

func TestWheel_MaxMultiplier(t *testing.T) {
	w := New(nil)
	assert.True(t, decimal.NewFromInt(12).Equal(w.MaxMultiplier(game.Params{ParamColor: Green})))
	assert.True(t, decimal.NewFromInt(2).Equal(w.MaxMultiplier(game.Params{ParamColor: Red})))
}

// TestSpinAlwaysKnownColorProperty checks every draw in [0,1) maps to a wheel color.
func TestSpinAlwaysKnownColorProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		draw := rapid.Float64Range(0, 0.999999).Draw(t, "draw")
		if _, ok := lookup(Spin(draw)); !ok {
			t.Fatalf("Spin(%v) returned unknown color", draw)
		}
	})
}
