package loadtest

import (
	stdjson "encoding/json"

	"github.com/golang-jwt/jwt/v5"
	jsoniter "github.com/json-iterator/go"
)

// json decodes numbers as encoding/json Numbers so identifiers round-trip
// into URLs and booking payloads unchanged.
var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// DefaultUserID is the booking owner used when no identity is known.
const DefaultUserID = "locust-user"

// Field aliases, tried in order.
var (
	filmIDKeys = []string{"id", "_id", "filmId"}
	seatIDKeys = []string{"seat_id", "id"}
	tokenKeys  = []string{"accessToken", "token", "access_token"}
)

type record map[string]any

// records decodes a JSON array of objects. Anything else yields nil.
func records(body []byte) []record {
	var out []record
	if err := json.Unmarshal(body, &out); err != nil {
		return nil
	}
	return out
}

// truthy reports whether v counts as a usable identifier: present, and not
// an empty string, zero or false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case stdjson.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case bool:
		return x
	}
	return true
}

// idOf returns the first truthy value among keys.
func idOf(r record, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && truthy(v) {
			return v, true
		}
	}
	return nil, false
}

// idString renders an identifier for use in a path or query string.
func idString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case stdjson.Number:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// tokenFrom extracts a bearer token from a login response body.
func tokenFrom(body []byte) string {
	var r record
	if err := json.Unmarshal(body, &r); err != nil {
		return ""
	}
	for _, k := range tokenKeys {
		if s, ok := r[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// subjectOf reads the sub claim of a JWT without verifying it. The load
// model only needs the caller's identity, not proof of it.
func subjectOf(token string) (string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// bookingRequest is the body POSTed to the bookings endpoint.
type bookingRequest struct {
	UserID     string `json:"user_id"`
	ShowtimeID any    `json:"showtime_id"`
	Status     string `json:"status"`
	SeatIDs    []any  `json:"seat_ids"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
