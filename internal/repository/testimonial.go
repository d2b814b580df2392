// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"wager-bridge-bot/internal/model"
)

// DefaultRecentLimit caps Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 20

const schema = `
	CREATE TABLE IF NOT EXISTS testimonials (
		id BIGSERIAL PRIMARY KEY,
		session_id VARCHAR(64) NOT NULL UNIQUE,
		variant VARCHAR(32) NOT NULL,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		deposit NUMERIC(20, 2) NOT NULL,
		net_profit NUMERIC(20, 2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_testimonials_created_at ON testimonials (created_at DESC);
`

// TestimonialRepository archives published session results. It is a record
// of what players chose to share, not a ledger.
type TestimonialRepository struct {
	pool *pgxpool.Pool
}

// NewTestimonialRepository creates a new TestimonialRepository instance.
func NewTestimonialRepository(pool *pgxpool.Pool) *TestimonialRepository {
	return &TestimonialRepository{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (r *TestimonialRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate testimonials: %w", err)
	}
	return nil
}

// Create stores a testimonial and fills in its ID and CreatedAt.
// Posting the same session twice keeps the first record.
func (r *TestimonialRepository) Create(ctx context.Context, t *model.Testimonial) error {
	const query = `
		INSERT INTO testimonials (session_id, variant, display_name, deposit, net_profit, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		t.SessionID,
		t.Variant,
		t.DisplayName,
		t.Deposit,
		t.NetProfit,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create testimonial: %w", err)
	}
	return nil
}

// Recent returns the newest testimonials first.
func (r *TestimonialRepository) Recent(ctx context.Context, limit int) ([]*model.Testimonial, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	const query = `
		SELECT id, session_id, variant, display_name, deposit, net_profit, created_at
		FROM testimonials
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query testimonials: %w", err)
	}
	defer rows.Close()

	var out []*model.Testimonial
	for rows.Next() {
		var t model.Testimonial
		if err := rows.Scan(
			&t.ID,
			&t.SessionID,
			&t.Variant,
			&t.DisplayName,
			&t.Deposit,
			&t.NetProfit,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan testimonial: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate testimonials: %w", err)
	}
	return out, nil
}

// Stats summarises the archive.
func (r *TestimonialRepository) Stats(ctx context.Context) (count int64, winners int64, err error) {
	const query = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE net_profit > 0)
		FROM testimonials
	`
	if err := r.pool.QueryRow(ctx, query).Scan(&count, &winners); err != nil {
		return 0, 0, fmt.Errorf("failed to count testimonials: %w", err)
	}
	return count, winners, nil
}
