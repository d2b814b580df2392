package amount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"empty", "", 0},
		{"plain", "250", 250},
		{"thousands separator", "1,000", 1000},
		{"decimal thousand", "1.5K", 1500},
		{"lowercase suffix", "1.5k", 1500},
		{"million", "2M", 2000000},
		{"billion", "3b", 3000000000},
		{"dollar prefix", "$999", 999},
		{"separator and suffix", "1,250.5K", 1250500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParse_NotNumeric(t *testing.T) {
	for _, in := range []string{"abc", "K", "1.2.3", "..."} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrNotNumeric)
		})
	}
}

func TestFloor(t *testing.T) {
	assert.Equal(t, int64(192), Floor(decimal.RequireFromString("192.9")))
	assert.Equal(t, int64(0), Floor(decimal.Zero))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0", Format(decimal.Zero))
	assert.Equal(t, "999", Format(decimal.NewFromInt(999)))
	assert.Equal(t, "1,500", Format(decimal.NewFromInt(1500)))
	assert.Equal(t, "2,000,000", Format(decimal.NewFromInt(2000000)))
	assert.Equal(t, "-1,000", Format(decimal.NewFromInt(-1000)))
}

// TestParseSuffixProperty checks that a K suffix always scales the bare value by 1000.
func TestParseSuffixProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Int64Range(0, 1_000_000).Draw(t, "n")
		bare := decimal.NewFromInt(n).String()

		plain, err := Parse(bare)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", bare, err)
		}
		scaled, err := Parse(bare + "K")
		if err != nil {
			t.Fatalf("Parse(%qK) failed: %v", bare, err)
		}
		if !plain.Mul(thousand).Equal(scaled) {
			t.Fatalf("Parse(%qK) = %s, want %s", bare, scaled, plain.Mul(thousand))
		}
	})
}
