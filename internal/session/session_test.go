package session

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/gatherly/gatherly-api/internal/apperr"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func validClaims() Claims {
	return Claims{
		Email: "Ada@Example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret, "sb-access-token")

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongAud := validClaims()
	wrongAud.Audience = jwt.ClaimStrings{"anon"}

	noSub := validClaims()
	noSub.Subject = ""

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", signToken(t, testSecret, jwt.SigningMethodHS256, validClaims()), false},
		{"empty", "", true},
		{"garbage", "not.a.jwt", true},
		{"wrong secret", signToken(t, "another-secret-another-secret-123456", jwt.SigningMethodHS256, validClaims()), true},
		{"wrong algorithm", signToken(t, testSecret, jwt.SigningMethodHS512, validClaims()), true},
		{"expired", signToken(t, testSecret, jwt.SigningMethodHS256, expired), true},
		{"wrong audience", signToken(t, testSecret, jwt.SigningMethodHS256, wrongAud), true},
		{"no subject", signToken(t, testSecret, jwt.SigningMethodHS256, noSub), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := v.Verify(tt.token)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrUnauthenticated) {
					t.Errorf("Verify() error = %v, want ErrUnauthenticated", err)
				}
				if u != nil {
					t.Errorf("Verify() returned user %+v on error", u)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if u.ID != "user-123" || u.Email != "ada@example.com" {
				t.Errorf("Verify() = %+v", u)
			}
		})
	}
}

func TestMiddlewareAndRequireUser(t *testing.T) {
	v := NewVerifier(testSecret, "sb-access-token")
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims())

	h := v.Middleware(zerolog.New(io.Discard))(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(FromContext(r.Context()).ID))
	})))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{"no session", func(r *http.Request) {}, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "user-123"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sb-access-token", Value: token}) }, http.StatusOK, "user-123"},
		{"invalid cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sb-access-token", Value: "junk"}) }, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if len(w.Header().Values("Vary")) == 0 {
				t.Error("Vary header not set")
			}
		})
	}
}
