package formbridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidState is returned for an OAuth state that cannot be trusted.
var ErrInvalidState = errors.New("invalid oauth state")

// State is round-tripped through the provider in the OAuth state parameter so
// the callback can resume without server-side session storage.
type State struct {
	UserID   string `json:"userId"`
	ReturnTo string `json:"returnTo"`
}

// EncodeState serializes s as URL-safe base64 of its JSON form.
func EncodeState(s State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeState reverses EncodeState. Anything other than an exact, complete
// state object fails with ErrInvalidState; no partial data is returned.
func DecodeState(raw string) (State, error) {
	raw = strings.TrimRight(raw, "=")
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return State{}, ErrInvalidState
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var s State
	if err := dec.Decode(&s); err != nil {
		return State{}, ErrInvalidState
	}
	if dec.More() {
		return State{}, ErrInvalidState
	}
	if strings.TrimSpace(s.UserID) == "" {
		return State{}, ErrInvalidState
	}
	return s, nil
}

// SafeReturnTo keeps only same-site relative paths and falls back to fallback.
func SafeReturnTo(returnTo, fallback string) string {
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") || strings.Contains(returnTo, `\`) {
		return fallback
	}
	return returnTo
}
