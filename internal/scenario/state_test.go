package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	s := New()

	_, err := s.Get(BookedFilm)
	var mk *MissingKeyError
	require.ErrorAs(t, err, &mk)
	assert.Equal(t, BookedFilm, mk.Key)

	s.Set(BookedFilm, "Wicked")
	s.Set(LastCreatedBookingID, "b1x9")
	v, err := s.Get(BookedFilm)
	require.NoError(t, err)
	assert.Equal(t, "Wicked", v)

	_, ok := s.Lookup(FilmTitle)
	assert.False(t, ok)
	assert.Equal(t, []string{BookedFilm, LastCreatedBookingID}, s.Keys())
}

func TestContext(t *testing.T) {
	s := New()
	s.Set(FilmGenre, "Drama")
	ctx := WithState(context.Background(), s)

	assert.Same(t, s, FromContext(ctx))

	detached := FromContext(context.Background())
	_, err := detached.Get(FilmGenre)
	assert.Error(t, err)
}
