package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gatherly/gatherly-api/internal/model"
)

const eventColumns = `id, community_id, title, description, location, starts_at, ends_at,
	registration_deadline, timezone, requires_approval, capacity, organizer_name, organizer_email,
	COALESCE(custom_questions, '{}'::jsonb), created_at, updated_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	db DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	now := time.Now().UTC()
	event := &model.Event{
		ID:                   uuid.New().String(),
		CommunityID:          req.CommunityID,
		Title:                req.Title,
		Description:          req.Description,
		Location:             req.Location,
		StartsAt:             req.StartsAt.UTC(),
		EndsAt:               req.EndsAt,
		RegistrationDeadline: req.RegistrationDeadline,
		Timezone:             req.Timezone,
		RequiresApproval:     req.RequiresApproval,
		Capacity:             req.Capacity,
		OrganizerName:        req.OrganizerName,
		OrganizerEmail:       req.OrganizerEmail,
		CustomQuestions:      req.CustomQuestions,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, community_id, title, description, location, starts_at, ends_at,
			registration_deadline, timezone, requires_approval, capacity, organizer_name, organizer_email,
			custom_questions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		event.ID, event.CommunityID, event.Title, event.Description, event.Location, event.StartsAt, event.EndsAt,
		event.RegistrationDeadline, event.Timezone, event.RequiresApproval, event.Capacity, event.OrganizerName,
		event.OrganizerEmail, event.CustomQuestions, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns events ordered by start time, optionally limited to one community.
func (r *EventRepository) List(ctx context.Context, communityID string) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	if communityID != "" {
		query += ` WHERE community_id = $1`
		args = append(args, communityID)
	}
	query += ` ORDER BY starts_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.CommunityID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.RegistrationDeadline, &e.Timezone, &e.RequiresApproval, &e.Capacity, &e.OrganizerName,
		&e.OrganizerEmail, &e.CustomQuestions, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}
