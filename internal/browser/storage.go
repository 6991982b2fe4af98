// internal/browser/storage.go
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// SessionUserKey is the localStorage entry the application keeps its signed-in user under.
const SessionUserKey = "user"

// ErrMalformedSessionUser marks a stored user entry that is not valid JSON.
var ErrMalformedSessionUser = errors.New("malformed session user")

// StateBridge reads and clears the state the application keeps in the browser.
type StateBridge struct {
	page Page
}

// NewStateBridge creates a bridge over page.
func NewStateBridge(page Page) *StateBridge {
	return &StateBridge{page: page}
}

type storageValue struct {
	Present bool   `json:"present"`
	Value   string `json:"value"`
}

// ReadSessionValue returns the raw localStorage value for key and whether it exists.
func (b *StateBridge) ReadSessionValue(ctx context.Context, key string) (string, bool, error) {
	quoted, err := json.Marshal(key)
	if err != nil {
		return "", false, err
	}
	expr := fmt.Sprintf(`(function(k) {
		const v = window.localStorage.getItem(k);
		return v === null ? {present: false, value: ""} : {present: true, value: v};
	})(%s)`, quoted)

	var res storageValue
	if err := b.page.Evaluate(ctx, expr, &res); err != nil {
		return "", false, fmt.Errorf("could not read session value %q: %w", key, err)
	}
	return res.Value, res.Present, nil
}

// ClearSessionAndCookies wipes local and session storage for the current
// origin and every browser cookie.
func (b *StateBridge) ClearSessionAndCookies(ctx context.Context) error {
	var done bool
	if err := b.page.Evaluate(ctx, `(function() { window.localStorage.clear(); window.sessionStorage.clear(); return true; })()`, &done); err != nil {
		return fmt.Errorf("could not clear storage: %w", err)
	}
	return b.page.ClearCookies(ctx)
}

// SessionUser is the subset of the stored user record the steps rely on.
type SessionUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the stored role marks an administrator.
func (u SessionUser) IsAdmin() bool {
	return strings.EqualFold(u.Role, "admin")
}

// ParseSessionUser decodes the stored user record.
func ParseSessionUser(raw string) (SessionUser, error) {
	var u SessionUser
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(raw, &u); err != nil {
		return SessionUser{}, fmt.Errorf("%w: %w", ErrMalformedSessionUser, err)
	}
	return u, nil
}

// ReadSessionUser reads and decodes the stored user. ok is false when no user is stored.
func (b *StateBridge) ReadSessionUser(ctx context.Context) (SessionUser, bool, error) {
	raw, ok, err := b.ReadSessionValue(ctx, SessionUserKey)
	if err != nil || !ok {
		return SessionUser{}, false, err
	}
	u, err := ParseSessionUser(raw)
	if err != nil {
		return SessionUser{}, false, err
	}
	return u, true, nil
}
