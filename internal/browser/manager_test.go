// internal/browser/manager_test.go
package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/marquee/internal/config"
)

func TestAllocatorFlags(t *testing.T) {
	t.Run("headless sandboxless defaults", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Headless: true, NoSandbox: true})
		assert.Equal(t, true, flags["headless"])
		assert.Equal(t, true, flags["disable-gpu"])
		assert.Equal(t, true, flags["no-sandbox"])
		assert.Equal(t, true, flags["disable-dev-shm-usage"])
		assert.NotContains(t, flags, "ignore-certificate-errors")
	})

	t.Run("headed keeps the sandbox unless asked", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Headless: false})
		assert.Equal(t, false, flags["headless"])
		assert.NotContains(t, flags, "no-sandbox")
	})

	t.Run("tls errors can be ignored", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{IgnoreTLSErrors: true})
		assert.Equal(t, true, flags["ignore-certificate-errors"])
		assert.Equal(t, true, flags["allow-insecure-localhost"])
	})

	t.Run("custom args override defaults", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{
			Headless: true,
			Args:     []string{"--headless=new", "--lang=en-US", "--incognito"},
		})
		assert.Equal(t, "new", flags["headless"])
		assert.Equal(t, "en-US", flags["lang"])
		assert.Equal(t, true, flags["incognito"])
	})
}

func TestDefaultAllocatorOptions(t *testing.T) {
	base := DefaultAllocatorOptions(config.BrowserConfig{})
	sized := DefaultAllocatorOptions(config.BrowserConfig{WindowWidth: 1366, WindowHeight: 900, ExecPath: "/usr/bin/chromium"})
	assert.Len(t, sized, len(base)+2, "window size and exec path each add one option")
}

func TestErrors(t *testing.T) {
	cause := errors.New("node is stale")
	terr := NewTimeoutError("element 'button' to be clickable", 1500*time.Millisecond, cause)
	assert.Equal(t, "timed out after 1.5s waiting for element 'button' to be clickable: last error: node is stale", terr.Error())
	assert.ErrorIs(t, terr, cause)

	nf := NewElementNotFoundError("button", "text contains \"sign up\"")
	assert.Contains(t, nf.Error(), `where text contains "sign up"`)
	assert.Equal(t, "element not found matching selector 'a'", NewElementNotFoundError("a", "").Error())

	nav := &NavigationError{URL: "http://cinema.test/films", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, nav, context.DeadlineExceeded)
	assert.Contains(t, nav.Error(), "http://cinema.test/films")
}

func TestCombineContext(t *testing.T) {
	t.Run("secondary cancellation propagates", func(t *testing.T) {
		primary := context.WithValue(context.Background(), struct{}{}, "tab")
		secondary, cancelSecondary := context.WithCancel(context.Background())

		combined, cancel := CombineContext(primary, secondary)
		defer cancel()

		assert.Equal(t, "tab", combined.Value(struct{}{}))
		cancelSecondary()

		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context was not canceled")
		}
	})

	t.Run("primary cancellation propagates", func(t *testing.T) {
		primary, cancelPrimary := context.WithCancel(context.Background())
		combined, cancel := CombineContext(primary, context.Background())
		defer cancel()

		cancelPrimary()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})
}
