package registration

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func boolPtr(b bool) *bool { return &b }

func TestDuplicateMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     BackendError
		ctx     *DuplicateContext
		want    string
		wantDup bool
	}{
		{
			name:    "unique violation, verified registrant",
			err:     BackendError{Code: "23505"},
			ctx:     &DuplicateContext{Email: "a@b.com", IsVerified: boolPtr(true)},
			want:    MsgAlreadyRegistered,
			wantDup: true,
		},
		{
			name:    "unique violation, unverified registrant",
			err:     BackendError{Code: "23505"},
			ctx:     &DuplicateContext{Email: "a@b.com", IsVerified: boolPtr(false)},
			want:    MsgVerificationSent,
			wantDup: true,
		},
		{
			name:    "verification unknown defaults to already registered",
			err:     BackendError{Code: "23505"},
			ctx:     &DuplicateContext{Email: "a@b.com"},
			want:    MsgAlreadyRegistered,
			wantDup: true,
		},
		{
			name:    "message match without code",
			err:     BackendError{Message: `Duplicate key value violates UNIQUE CONSTRAINT "attenders_event_id_email_key"`},
			ctx:     &DuplicateContext{Email: "a@b.com", IsVerified: boolPtr(true)},
			want:    MsgAlreadyRegistered,
			wantDup: true,
		},
		{
			name:    "already exists phrasing",
			err:     BackendError{Message: "Registration already exists"},
			want:    MsgDuplicateNoEmailHint,
			wantDup: true,
		},
		{
			name:    "duplicate without email context",
			err:     BackendError{Code: "23505"},
			ctx:     &DuplicateContext{},
			want:    MsgDuplicateNoEmailHint,
			wantDup: true,
		},
		{
			name: "foreign key violation is not a duplicate",
			err:  BackendError{Code: "23503", Message: "insert violates foreign key constraint"},
			ctx:  &DuplicateContext{Email: "a@b.com"},
		},
		{
			name: "empty error",
			err:  BackendError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DuplicateMessage(tt.err, tt.ctx)
			if ok != tt.wantDup {
				t.Fatalf("DuplicateMessage() ok = %v, want %v", ok, tt.wantDup)
			}
			if got != tt.want {
				t.Errorf("DuplicateMessage() = %q, want %q", got, tt.want)
			}
			if ok && got == "" {
				t.Error("duplicate classified but message empty")
			}
		})
	}
}

func TestBackendErrorFrom(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key value", Detail: "Key (event_id, email) already exists."}
	wrapped := fmt.Errorf("insert attender: %w", pgErr)

	got := BackendErrorFrom(wrapped)
	if got.Code != "23505" || got.Message != "duplicate key value" || got.Details == "" {
		t.Errorf("BackendErrorFrom(pg) = %+v", got)
	}

	plain := BackendErrorFrom(errors.New("connection reset"))
	if plain.Code != "" || plain.Message != "connection reset" {
		t.Errorf("BackendErrorFrom(plain) = %+v", plain)
	}
	if IsDuplicate(plain) {
		t.Error("connection error classified as duplicate")
	}

	if got := BackendErrorFrom(nil); got != (BackendError{}) {
		t.Errorf("BackendErrorFrom(nil) = %+v", got)
	}
}
