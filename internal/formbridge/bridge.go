package formbridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/forms/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/gatherly/gatherly-api/internal/apperr"
	"github.com/gatherly/gatherly-api/internal/config"
	"github.com/gatherly/gatherly-api/internal/model"
	"github.com/gatherly/gatherly-api/internal/session"
)

// DefaultReturnTo is used when the requested return target is unsafe or empty.
const DefaultReturnTo = "/dashboard"

var (
	// ErrOAuthInit is returned when no OAuth client can be built.
	ErrOAuthInit = errors.New("google oauth client is not configured")
	// ErrNotConnected is returned when the user has not linked a Google account.
	ErrNotConnected = errors.New("google account not connected")
)

// TokenStore persists one token record per user.
// Get returns apperr.ErrNotFound when the user has no record; Delete of a
// missing record succeeds.
type TokenStore interface {
	Get(ctx context.Context, userID string) (*model.TokenRecord, error)
	Upsert(ctx context.Context, rec model.TokenRecord) error
	Delete(ctx context.Context, userID string) error
}

// Status is the connection state reported to the UI.
// An expired access token does not mean disconnected; a refresh may still succeed.
type Status struct {
	Connected   bool       `json:"connected"`
	IsExpired   *bool      `json:"isExpired,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// FormSchema is a Google Form's questions in platform shape.
type FormSchema struct {
	FormID    string     `json:"formId"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// ServiceFactory builds a Forms API client on top of an authorized HTTP client.
type ServiceFactory func(ctx context.Context, client *http.Client) (*forms.Service, error)

func defaultServiceFactory(ctx context.Context, client *http.Client) (*forms.Service, error) {
	return forms.NewService(ctx, option.WithHTTPClient(client))
}

// Bridge implements the Google Forms integration for signed-in users.
type Bridge struct {
	oauth      *oauth2.Config
	store      TokenStore
	log        zerolog.Logger
	now        func() time.Time
	newService ServiceFactory
}

// New builds a Bridge from configuration. When the Google client is not
// configured the Bridge still reports status and disconnects, but auth and
// API calls fail with ErrOAuthInit.
func New(cfg config.GoogleConfig, store TokenStore, log zerolog.Logger) *Bridge {
	var oc *oauth2.Config
	if cfg.Configured() {
		oc = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{forms.FormsBodyReadonlyScope, forms.FormsResponsesReadonlyScope},
			Endpoint:     google.Endpoint,
		}
	}
	return NewWithOAuth(oc, store, log)
}

// NewWithOAuth builds a Bridge around an explicit OAuth client (nil = unconfigured).
func NewWithOAuth(oc *oauth2.Config, store TokenStore, log zerolog.Logger) *Bridge {
	return &Bridge{
		oauth:      oc,
		store:      store,
		log:        log,
		now:        time.Now,
		newService: defaultServiceFactory,
	}
}

// WithServiceFactory replaces how Forms API clients are built.
func (b *Bridge) WithServiceFactory(f ServiceFactory) *Bridge {
	b.newService = f
	return b
}

// InitiateAuth returns the provider consent URL for user. The user id and
// return target travel in the state parameter.
func (b *Bridge) InitiateAuth(ctx context.Context, user *session.User, returnTo string) (string, error) {
	if user == nil {
		return "", apperr.ErrUnauthenticated
	}
	if b.oauth == nil {
		return "", ErrOAuthInit
	}

	state, err := EncodeState(State{UserID: user.ID, ReturnTo: SafeReturnTo(returnTo, DefaultReturnTo)})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOAuthInit, err)
	}
	return b.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// HandleCallback completes the code flow and stores the user's tokens.
// The state is unsigned, so it only names which user to resume; the session
// must belong to that same user. A state that does not decode, a missing
// session, or a session for a different user fails with ErrInvalidState.
func (b *Bridge) HandleCallback(ctx context.Context, current *session.User, code, rawState string) (string, error) {
	state, err := DecodeState(rawState)
	if err != nil {
		return "", err
	}
	if current == nil || current.ID != state.UserID {
		return "", ErrInvalidState
	}
	if b.oauth == nil {
		return "", ErrOAuthInit
	}
	if code == "" {
		return "", apperr.Provider("exchange code", "Google did not return an authorization code", nil)
	}

	tok, err := b.oauth.Exchange(ctx, code)
	if err != nil {
		return "", apperr.Provider("exchange code", "Could not complete Google authorization", err)
	}
	if err := b.save(ctx, state.UserID, tok); err != nil {
		return "", err
	}

	b.log.Info().Str("user_id", state.UserID).Msg("google account connected")
	return SafeReturnTo(state.ReturnTo, DefaultReturnTo), nil
}

// CheckStatus reports whether user has linked a Google account.
func (b *Bridge) CheckStatus(ctx context.Context, user *session.User) (Status, error) {
	if user == nil {
		return Status{}, apperr.ErrUnauthenticated
	}

	rec, err := b.store.Get(ctx, user.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return Status{Connected: false}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("load google tokens: %w", err)
	}

	st := Status{Connected: true, LastUpdated: &rec.UpdatedAt}
	if rec.ExpiryDate != nil {
		expired := rec.ExpiryDate.Before(b.now())
		st.IsExpired = &expired
	}
	return st, nil
}

// Disconnect deletes the user's stored tokens. Disconnecting an account that
// is not connected succeeds.
func (b *Bridge) Disconnect(ctx context.Context, user *session.User) error {
	if user == nil {
		return apperr.ErrUnauthenticated
	}
	if err := b.store.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete google tokens: %w", err)
	}
	b.log.Info().Str("user_id", user.ID).Msg("google account disconnected")
	return nil
}

// FetchForm loads a form's questions.
func (b *Bridge) FetchForm(ctx context.Context, user *session.User, formID string) (*FormSchema, error) {
	svc, err := b.service(ctx, user)
	if err != nil {
		return nil, err
	}
	f, err := svc.Forms.Get(formID).Context(ctx).Do()
	if err != nil {
		return nil, b.providerErr("get form", err)
	}

	schema := &FormSchema{FormID: f.FormId, Questions: ParseQuestions(f)}
	if f.Info != nil {
		schema.Title = f.Info.Title
	}
	return schema, nil
}

// FetchResponses loads a form's questions and every response, answers keyed by question title.
func (b *Bridge) FetchResponses(ctx context.Context, user *session.User, formID string) ([]Question, []Response, error) {
	svc, err := b.service(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	f, err := svc.Forms.Get(formID).Context(ctx).Do()
	if err != nil {
		return nil, nil, b.providerErr("get form", err)
	}
	titles := TitleIndex(f)

	var out []Response
	pageToken := ""
	for {
		call := svc.Forms.Responses.List(formID).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, nil, b.providerErr("list responses", err)
		}
		for _, r := range page.Responses {
			out = append(out, ParseResponse(r, titles))
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return ParseQuestions(f), out, nil
}

func (b *Bridge) service(ctx context.Context, user *session.User) (*forms.Service, error) {
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if b.oauth == nil {
		return nil, ErrOAuthInit
	}

	rec, err := b.store.Get(ctx, user.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load google tokens: %w", err)
	}

	tok := &oauth2.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		TokenType:    rec.TokenType,
	}
	if rec.ExpiryDate != nil {
		tok.Expiry = *rec.ExpiryDate
	}

	src := &persistingSource{
		base: b.oauth.TokenSource(ctx, tok),
		last: tok.AccessToken,
		save: func(t *oauth2.Token) error { return b.save(ctx, user.ID, t) },
		log:  b.log,
	}
	svc, err := b.newService(ctx, oauth2.NewClient(ctx, src))
	if err != nil {
		return nil, apperr.Provider("create forms client", "Could not reach Google Forms", err)
	}
	return svc, nil
}

func (b *Bridge) save(ctx context.Context, userID string, tok *oauth2.Token) error {
	rec := model.TokenRecord{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		UpdatedAt:    b.now().UTC(),
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		rec.ExpiryDate = &exp
	}
	if err := b.store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("store google tokens: %w", err)
	}
	return nil
}

func (b *Bridge) providerErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return apperr.ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.Provider(op, "Google denied access to this form; reconnect your account", err)
		}
	}
	return apperr.Provider(op, "Google Forms request failed", err)
}

// persistingSource writes refreshed tokens back to the store so the next
// request starts from the new access token.
type persistingSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token) error
	log  zerolog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	t, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t.AccessToken != s.last {
		if err := s.save(t); err != nil {
			// The refreshed token is still usable for this request.
			s.log.Warn().Err(err).Msg("could not persist refreshed google token")
		} else {
			s.last = t.AccessToken
		}
	}
	return t, nil
}
