// Package registration implements registration-time policy: classifying
// duplicate registrations from database errors and computing the time left
// before an event's registration deadline.
package registration

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UniqueViolationCode is the Postgres SQLSTATE for unique_violation.
const UniqueViolationCode = "23505"

// User-facing duplicate messages.
const (
	MsgAlreadyRegistered    = "This email is already registered for this event"
	MsgVerificationSent     = "A verification email has already been sent to this address"
	MsgDuplicateNoEmailHint = "You are already registered for this event"
)

var duplicatePatterns = []string{"duplicate", "unique constraint", "already exists"}

// BackendError is the shape of an error reported by the database service.
type BackendError struct {
	Code    string
	Message string
	Details string
}

// BackendErrorFrom extracts code, message and detail from err. Postgres errors
// keep their SQLSTATE; anything else only carries its message.
func BackendErrorFrom(err error) BackendError {
	if err == nil {
		return BackendError{}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return BackendError{Code: pgErr.Code, Message: pgErr.Message, Details: pgErr.Detail}
	}
	return BackendError{Message: err.Error()}
}

// DuplicateContext carries what the caller knows about the registrant.
// IsVerified is nil when the verification state of the prior registration is unknown.
type DuplicateContext struct {
	Email      string
	IsVerified *bool
}

// IsDuplicate reports whether e is a uniqueness violation, either by code or
// by a recognizable message.
func IsDuplicate(e BackendError) bool {
	if e.Code == UniqueViolationCode {
		return true
	}
	msg := strings.ToLower(e.Message)
	for _, p := range duplicatePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// DuplicateMessage returns a user-facing message when e is a duplicate
// registration, and ok=false otherwise so the caller can treat it as a generic failure.
func DuplicateMessage(e BackendError, ctx *DuplicateContext) (msg string, ok bool) {
	if !IsDuplicate(e) {
		return "", false
	}
	if ctx == nil || ctx.Email == "" {
		return MsgDuplicateNoEmailHint, true
	}
	// Unknown verification state reports "already registered".
	// TODO: confirm with product whether unknown state should mention verification instead.
	if ctx.IsVerified != nil && !*ctx.IsVerified {
		return MsgVerificationSent, true
	}
	return MsgAlreadyRegistered, true
}
