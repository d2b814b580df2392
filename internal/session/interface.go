package session

import (
	"context"

	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/game"
	"wager-bridge-bot/internal/model"
)

// Notifier renders prompts in a session's discussion space.
type Notifier interface {
	PromptText(ctx context.Context, spaceID, text string) error
	PromptChoice(ctx context.Context, spaceID, text string, options []game.Choice) error
}

// Spaces creates and removes the per-session discussion spaces.
type Spaces interface {
	OpenSpace(ctx context.Context, entry model.QueueEntry) (string, error)
	CloseSpace(ctx context.Context, spaceID string) error
}

// Reporter publishes testimonials. Optional.
type Reporter interface {
	PostTestimonial(ctx context.Context, t *model.Testimonial) error
}

// WorldLink sends commands to the game world. Pay commands are fire-and-forget:
// a nil error only means the command was handed to the link, not that the
// payment happened.
type WorldLink interface {
	Pay(target string, amount int64) error
	Broadcast(text string) error
	RequestBalance() error
	Balance() decimal.Decimal
}
