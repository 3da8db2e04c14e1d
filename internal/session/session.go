// Package session verifies the backend-as-a-service session carried on each
// request and exposes the signed-in user through the request context.
package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/gatherly/gatherly-api/internal/apperr"
)

// Audience is the JWT audience Supabase issues to signed-in users.
const Audience = "authenticated"

// User is the authenticated principal for a request.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Claims is the subset of the Supabase access token we rely on.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens signed with the project JWT secret.
type Verifier struct {
	secret     []byte
	cookieName string
	now        func() time.Time
}

// NewVerifier builds a Verifier. cookieName is where browsers carry the token.
func NewVerifier(secret, cookieName string) *Verifier {
	return &Verifier{secret: []byte(secret), cookieName: cookieName, now: time.Now}
}

// Verify parses and validates a raw access token.
func (v *Verifier) Verify(raw string) (*User, error) {
	if raw == "" || len(v.secret) == 0 {
		return nil, apperr.ErrUnauthenticated
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", apperr.ErrUnauthenticated)
	}

	return &User{ID: claims.Subject, Email: strings.ToLower(claims.Email)}, nil
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func (v *Verifier) TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(v.cookieName); err == nil {
		return c.Value
	}
	return ""
}

type ctxKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the signed-in user, or nil.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxKey{}).(*User)
	return u
}

// Middleware attaches the user to the request context when a valid session is
// present. Requests without one continue anonymously.
func (v *Verifier) Middleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Responses depend on the session; keep shared caches from mixing users.
			w.Header().Add("Vary", "Cookie")
			w.Header().Add("Vary", "Authorization")

			raw := v.TokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, err := v.Verify(raw)
			if err != nil {
				log.Debug().Err(err).Msg("ignoring invalid session")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireUser rejects requests without a signed-in user with 401.
// The body never says whether an account exists.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
