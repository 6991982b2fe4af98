// Package scenario carries per-scenario values between steps through the
// context godog threads from one step to the next.
package scenario

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Keys written by one step and read by a later one.
const (
	BookedFilm           = "booked_film"
	LastCreatedBookingID = "last_created_booking_id"
	DeletedShowtimeText  = "deleted_showtime_text"
	DeletedFilmTitle     = "deleted_film_title"
	ShowtimeFilm         = "showtime_film"
	ShowtimeDate         = "showtime_date"
	ShowtimeTime         = "showtime_time"
	FilmTitle            = "film_title"
	FilmGenre            = "film_genre"
)

// MissingKeyError is returned when a step reads a value no earlier step stored.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("scenario value %q was never set; an earlier step must store it", e.Key)
}

// State is the string-keyed store for one scenario.
type State struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates an empty State.
func New() *State {
	return &State{values: map[string]string{}}
}

func (s *State) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns the value for key or a *MissingKeyError.
func (s *State) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", &MissingKeyError{Key: key}
	}
	return v, nil
}

// Lookup is Get without the error.
func (s *State) Lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys lists the stored keys in order.
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type stateKey struct{}

// WithState returns a child context carrying s.
func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// FromContext returns the scenario's State. A context without one yields a
// fresh, detached State so reads fail with MissingKeyError instead of panicking.
func FromContext(ctx context.Context) *State {
	if s, ok := ctx.Value(stateKey{}).(*State); ok {
		return s
	}
	return New()
}
