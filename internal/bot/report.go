package bot

import (
	"context"
	"errors"

	"wager-bridge-bot/internal/model"
	"wager-bridge-bot/internal/session"
)

// Reporters fans a testimonial out to every reporter and joins their errors.
type Reporters []session.Reporter

// PostTestimonial implements session.Reporter.
func (rs Reporters) PostTestimonial(ctx context.Context, t *model.Testimonial) error {
	var errs []error
	for _, r := range rs {
		if err := r.PostTestimonial(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store persists testimonials.
type Store interface {
	Create(ctx context.Context, t *model.Testimonial) error
}

// Archive adapts a Store to session.Reporter.
type Archive struct {
	Store Store
}

// PostTestimonial implements session.Reporter.
func (a Archive) PostTestimonial(ctx context.Context, t *model.Testimonial) error {
	return a.Store.Create(ctx, t)
}
