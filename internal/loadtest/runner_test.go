package loadtest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/marquee/internal/network"
)

const (
	defaultEventually = 2 * time.Second
	pollEvery         = 5 * time.Millisecond
)

func TestNewRunnerValidates(t *testing.T) {
	cfg := loadConfig("")
	_, err := NewRunner(cfg, nil, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "must be an absolute URL")

	cfg = loadConfig("http://api.test")
	cfg.Users = 0
	_, err = NewRunner(cfg, nil, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "users must be a positive integer")
}

func TestRunnerReportsPerRequestStats(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := newBackend()
	server := httptest.NewServer(b)
	defer server.Close()
	client := network.NewClient(network.Options{})
	defer client.CloseIdleConnections()

	cfg := loadConfig(server.URL)
	cfg.Users = 3
	cfg.SpawnRate = 100
	cfg.Duration = 300 * time.Millisecond
	cfg.MinWait = time.Millisecond
	cfg.MaxWait = 3 * time.Millisecond

	runner, err := NewRunner(cfg, client, zaptest.NewLogger(t))
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Users)
	assert.GreaterOrEqual(t, report.Elapsed, cfg.Duration/2)

	names := make([]string, 0, len(report.Stats))
	for _, e := range report.Stats {
		names = append(names, e.Name)
		assert.Zero(t, e.Failures, e.Name)
		assert.LessOrEqual(t, e.Min, e.P50)
		assert.LessOrEqual(t, e.P50, e.P95)
		assert.LessOrEqual(t, e.P95, e.Max)
	}
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, NameFilms)
}

func TestRunnerIssuesNoBookingsWithoutSeats(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := newBackend()
	b.seats = `[]`
	server := httptest.NewServer(b)
	defer server.Close()
	client := network.NewClient(network.Options{})
	defer client.CloseIdleConnections()

	cfg := loadConfig(server.URL)
	cfg.Users = 4
	cfg.SpawnRate = 1000
	cfg.Duration = 200 * time.Millisecond
	cfg.BrowseWeight = 0

	runner, err := NewRunner(cfg, client, zaptest.NewLogger(t))
	require.NoError(t, err)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	for _, e := range report.Stats {
		assert.NotEqual(t, NameBookings, e.Name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Empty(t, b.bookings)
	assert.NotEmpty(t, b.queries, "the chain reached the seat lookup")
}

func TestRunnerStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := newBackend()
	server := httptest.NewServer(b)
	defer server.Close()
	client := network.NewClient(network.Options{})
	defer client.CloseIdleConnections()

	cfg := loadConfig(server.URL)
	cfg.Users = 50
	cfg.SpawnRate = 1
	cfg.Duration = time.Hour

	runner, err := NewRunner(cfg, client, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	report, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Less(t, report.Users, cfg.Users, "spawning stops with the run")
}
