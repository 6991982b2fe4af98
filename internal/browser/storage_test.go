// internal/browser/storage_test.go
package browser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/marquee/internal/browser"
	"github.com/xkilldash9x/marquee/internal/browser/browsertest"
)

func TestStateBridge_ReadSessionValue(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage("http://cinema.test")
	bridge := browser.NewStateBridge(page)

	t.Run("absent key", func(t *testing.T) {
		v, ok, err := bridge.ReadSessionValue(ctx, "user")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("present key with quotes in the name", func(t *testing.T) {
		page.Storage[`we"ird`] = "1"
		v, ok, err := bridge.ReadSessionValue(ctx, `we"ird`)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "1", v)
	})
}

func TestStateBridge_ReadSessionUser(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage("http://cinema.test")
	bridge := browser.NewStateBridge(page)

	_, ok, err := bridge.ReadSessionUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	page.Storage["user"] = `{"id":"7f3","email":"admin@cinema.com","role":"admin","name":"Admin"}`
	u, ok, err := bridge.ReadSessionUser(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "admin@cinema.com", u.Email)
	assert.True(t, u.IsAdmin())

	page.Storage["user"] = `{not json`
	_, _, err = bridge.ReadSessionUser(ctx)
	assert.ErrorIs(t, err, browser.ErrMalformedSessionUser)
	assert.ErrorContains(t, err, "malformed session user: ")
}

func TestStateBridge_ClearSessionAndCookies(t *testing.T) {
	ctx := context.Background()
	page := browsertest.NewPage("http://cinema.test")
	page.Storage["user"] = `{"email":"jane@example.com"}`
	bridge := browser.NewStateBridge(page)

	require.NoError(t, bridge.ClearSessionAndCookies(ctx))
	assert.Empty(t, page.Storage)
	assert.Equal(t, 1, page.CookieClears)
}

func TestParseSessionUser(t *testing.T) {
	u, err := browser.ParseSessionUser(`{"email":"jane@example.com","role":"Customer"}`)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.False(t, u.IsAdmin())
}
