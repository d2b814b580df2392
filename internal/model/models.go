// Package model defines the records shared between the queue, the gateways
// and the testimonial archive.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QueueEntry is a player's request waiting for a session slot.
type QueueEntry struct {
	RequesterID     string
	RequesterName   string
	OriginChannelID string
	Variant         string
	EnqueuedAt      time.Time
}

// Testimonial is a finished session's result the player chose to publish.
// DisplayName is empty when the player asked to stay anonymous.
type Testimonial struct {
	ID          int64           `db:"id"`
	SessionID   string          `db:"session_id"`
	Variant     string          `db:"variant"`
	DisplayName string          `db:"display_name"`
	Deposit     decimal.Decimal `db:"deposit"`
	NetProfit   decimal.Decimal `db:"net_profit"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Anonymous reports whether the testimonial hides the player's identity.
func (t *Testimonial) Anonymous() bool {
	return t.DisplayName == ""
}

// Won reports whether the player finished ahead.
func (t *Testimonial) Won() bool {
	return t.NetProfit.IsPositive()
}
