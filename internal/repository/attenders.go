package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gatherly/gatherly-api/internal/model"
)

const attenderColumns = `id, event_id, name, email, phone, avatar_url, rsvp_status, approval_status,
	is_verified, registered_at, is_anonymous, custom_answers`

// AttenderRepository handles persistence for attenders.
type AttenderRepository struct {
	db DB
}

// NewAttenderRepository constructs an AttenderRepository.
func NewAttenderRepository(db DB) *AttenderRepository {
	return &AttenderRepository{db: db}
}

// Insert stores a new attender. Uniqueness of (event_id, email) is left to the
// database: a duplicate comes back as the driver's unique violation, wrapped.
//
// The event row is locked with SELECT ... FOR UPDATE so that concurrent
// registrations for the same event serialize on the capacity check instead of
// both reading the same head count and overbooking.
func (r *AttenderRepository) Insert(ctx context.Context, a model.Attender) (*model.Attender, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var capacity *int
	err = tx.QueryRow(ctx, `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, a.EventID).Scan(&capacity)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	if capacity != nil && a.RSVPStatus == model.RSVPGoing {
		var going int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM attenders
			 WHERE event_id = $1 AND rsvp_status = 'going'
			   AND (approval_status IS NULL OR approval_status <> 'rejected')`,
			a.EventID,
		).Scan(&going)
		if err != nil {
			return nil, fmt.Errorf("count attenders: %w", err)
		}
		if going >= *capacity {
			return nil, ErrEventFull
		}
	}

	a.ID = uuid.New().String()
	if a.RegisteredAt == nil {
		now := time.Now().UTC()
		a.RegisteredAt = &now
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO attenders (`+attenderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.EventID, a.Name, a.Email, a.Phone, a.AvatarURL, string(a.RSVPStatus), approvalText(a.ApprovalStatus),
		a.IsVerified, a.RegisteredAt, a.IsAnonymous, nullJSON(a.CustomAnswers),
	)
	if err != nil {
		return nil, fmt.Errorf("insert attender: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &a, nil
}

// VerificationStatus reports whether the existing registration for email is
// verified. It returns nil when there is no such registration.
func (r *AttenderRepository) VerificationStatus(ctx context.Context, eventID, email string) (*bool, error) {
	var verified bool
	err := r.db.QueryRow(ctx,
		`SELECT is_verified FROM attenders WHERE event_id = $1 AND email = $2`,
		eventID, email,
	).Scan(&verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load verification status: %w", err)
	}
	return &verified, nil
}

// ListByEvent returns all attenders for an event in registration order.
func (r *AttenderRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Attender, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+attenderColumns+` FROM attenders WHERE event_id = $1 ORDER BY registered_at ASC, id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attenders: %w", err)
	}
	defer rows.Close()

	var out []model.Attender
	for rows.Next() {
		a, err := scanAttender(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateApproval records the organizer's decision for one attender of an event.
func (r *AttenderRepository) UpdateApproval(ctx context.Context, eventID, attenderID string, status model.ApprovalStatus) (*model.Attender, error) {
	a, err := scanAttender(r.db.QueryRow(ctx,
		`UPDATE attenders SET approval_status = $3
		 WHERE event_id = $1 AND id = $2
		 RETURNING `+attenderColumns,
		eventID, attenderID, string(status),
	))
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// MarkVerified confirms a provisional registration owned by email.
// A registration under a different email is reported as ErrNotFound.
func (r *AttenderRepository) MarkVerified(ctx context.Context, attenderID, email string) (*model.Attender, error) {
	a, err := scanAttender(r.db.QueryRow(ctx,
		`UPDATE attenders SET is_verified = TRUE
		 WHERE id = $1 AND lower(email) = lower($2)
		 RETURNING `+attenderColumns,
		attenderID, email,
	))
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAttender(row pgx.Row) (*model.Attender, error) {
	var (
		a        model.Attender
		rsvp     string
		approval *string
		answers  []byte
	)
	err := row.Scan(&a.ID, &a.EventID, &a.Name, &a.Email, &a.Phone, &a.AvatarURL, &rsvp, &approval,
		&a.IsVerified, &a.RegisteredAt, &a.IsAnonymous, &answers)
	if err != nil {
		return nil, fmt.Errorf("scan attender: %w", err)
	}
	a.RSVPStatus = model.RSVPStatus(rsvp)
	if approval != nil {
		s := model.ApprovalStatus(*approval)
		a.ApprovalStatus = &s
	}
	if len(answers) > 0 {
		a.CustomAnswers = answers
	}
	return &a, nil
}

func approvalText(s *model.ApprovalStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// nullJSON keeps empty answers as SQL NULL rather than an invalid empty document.
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
