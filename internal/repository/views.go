package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ViewRepository records event page views.
type ViewRepository struct {
	db DB
}

// NewViewRepository constructs a ViewRepository.
func NewViewRepository(db DB) *ViewRepository {
	return &ViewRepository{db: db}
}

// Record stores one view of eventID. viewerID is empty for anonymous visitors.
func (r *ViewRepository) Record(ctx context.Context, eventID, viewerID string) error {
	var viewer *string
	if viewerID != "" {
		viewer = &viewerID
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO event_views (id, event_id, viewer_id) VALUES ($1, $2, $3)`,
		uuid.New().String(), eventID, viewer,
	)
	if err != nil {
		return fmt.Errorf("record event view: %w", err)
	}
	return nil
}

// Count returns the number of recorded views for eventID.
func (r *ViewRepository) Count(ctx context.Context, eventID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM event_views WHERE event_id = $1`, eventID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count event views: %w", err)
	}
	return n, nil
}
