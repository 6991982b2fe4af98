package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.True(t, cfg.Browser().Headless)
	assert.True(t, cfg.Browser().NoSandbox)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.App().BaseURL)
	assert.Equal(t, 60*time.Second, cfg.App().WaitTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.App().PollInterval)
	assert.Equal(t, 5, cfg.App().StatusPoll.Attempts)
	assert.Equal(t, 3*time.Second, cfg.App().StatusPoll.Delay)
	assert.Equal(t, []string{"bookings", "booking_seats", "seat_statuses"}, cfg.Fixture().Collections)
	assert.Equal(t, "test movie", cfg.Fixture().FilmMarker)
	assert.Equal(t, "/api/films/{id}", cfg.Load().Paths.FilmDetail)
	assert.Equal(t, 3, cfg.Load().BrowseWeight)
	assert.Equal(t, 1, cfg.Load().BookWeight)
	assert.Equal(t, "locust-user", cfg.Load().UserID)

	require.Len(t, cfg.Credentials().Accounts, 2)
	assert.Equal(t, "admin@cinema.com", cfg.Credentials().Accounts[0].Email)

	require.NoError(t, cfg.Validate(), "defaults must always validate")
}

func TestCredentialsLookup(t *testing.T) {
	creds := NewDefaultConfig().Credentials()

	t.Run("known account is matched case-insensitively", func(t *testing.T) {
		acct := creds.Lookup("Admin@Cinema.com")
		assert.Equal(t, "adminbiasa", acct.Password)
		assert.Equal(t, "admin", acct.Role)
	})

	t.Run("unknown account falls back to the default password", func(t *testing.T) {
		acct := creds.Lookup("someone@example.com")
		assert.Equal(t, "test123", acct.Password)
		assert.Equal(t, "customer", acct.Role)
		assert.Equal(t, "someone@example.com", acct.Email)
	})
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate())

		badURL := *cfg
		badURL.AppCfg.BaseURL = "not a url"
		err := badURL.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "app.base_url must be an absolute URL")

		badWait := *cfg
		badWait.AppCfg.WaitSeconds = 0
		err = badWait.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "app.wait_seconds must be a positive integer")

		badPoll := *cfg
		badPoll.AppCfg.StatusPoll.Attempts = 0
		err = badPoll.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "app.status_poll")
	})

	t.Run("Fixture Validation", func(t *testing.T) {
		assert.NoError(t, FixtureConfig{Driver: "none"}.Validate())
		assert.NoError(t, FixtureConfig{Driver: "file", Path: "db.json"}.Validate())
		assert.Error(t, FixtureConfig{Driver: "file"}.Validate())

		err := FixtureConfig{Driver: "postgres"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")

		assert.Error(t, FixtureConfig{Driver: "mongo"}.Validate())
	})

	t.Run("Load Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Load()
		assert.NoError(t, valid.Validate())

		noUsers := valid
		noUsers.Users = 0
		assert.Error(t, noUsers.Validate())

		inverted := valid
		inverted.MinWait, inverted.MaxWait = 3*time.Second, time.Second
		assert.Error(t, inverted.Validate())

		noWeights := valid
		noWeights.BrowseWeight, noWeights.BookWeight = 0, 0
		assert.Error(t, noWeights.Validate())

		noPlaceholder := valid
		noPlaceholder.Paths.FilmDetail = "/api/films/"
		err := noPlaceholder.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "{id}")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Legacy environment names are honoured", func(t *testing.T) {
		t.Setenv("BASE_URL", "http://cinema.test:8080")
		t.Setenv("WAIT_SECONDS", "15")
		t.Setenv("LOCUST_FILMS_PATH", "/films")
		t.Setenv("LOCUST_USER", "locust@example.com")

		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "http://cinema.test:8080", cfg.App().BaseURL)
		assert.Equal(t, 15*time.Second, cfg.App().WaitTimeout())
		assert.Equal(t, "/films", cfg.Load().Paths.Films)
		assert.Equal(t, "locust@example.com", cfg.Load().User)
	})

	t.Run("Prefixed names win over legacy names", func(t *testing.T) {
		t.Setenv("BASE_URL", "http://legacy.test")
		t.Setenv("MARQUEE_APP_BASE_URL", "http://prefixed.test")

		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "http://prefixed.test", cfg.App().BaseURL)
	})

	t.Run("YAML overrides defaults", func(t *testing.T) {
		yamlConfig := []byte(`
app:
  base_url: "http://staging.cinema.test"
  status_poll:
    attempts: 8
load:
  users: 50
  paths:
    films: "/v2/films"
credentials:
  accounts:
    - email: "ops@cinema.com"
      password: "hunter2"
      role: "admin"
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "http://staging.cinema.test", cfg.App().BaseURL)
		assert.Equal(t, 8, cfg.App().StatusPoll.Attempts)
		assert.Equal(t, 3*time.Second, cfg.App().StatusPoll.Delay, "unset nested keys keep their defaults")
		assert.Equal(t, 50, cfg.Load().Users)
		assert.Equal(t, "/v2/films", cfg.Load().Paths.Films)
		assert.Equal(t, "/api/bookings", cfg.Load().Paths.Bookings)

		acct := cfg.Credentials().Lookup("ops@cinema.com")
		assert.Equal(t, "hunter2", acct.Password)
	})

	t.Run("Invalid values are rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("load.users", -1)

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

// -- Setter Tests --

func TestSetters(t *testing.T) {
	var cfg Interface = NewDefaultConfig()

	cfg.SetBrowserHeadless(false)
	cfg.SetAcceptPaths([]string{"features/auth.feature"})
	cfg.SetAcceptTags("@smoke")
	cfg.SetAcceptFormat("progress")
	cfg.SetLoadUsers(25)
	cfg.SetLoadSpawnRate(5)
	cfg.SetLoadDuration(2 * time.Minute)
	cfg.SetLoadHost("http://api.test")

	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, []string{"features/auth.feature"}, cfg.Accept().Paths)
	assert.Equal(t, "@smoke", cfg.Accept().Tags)
	assert.Equal(t, "progress", cfg.Accept().Format)
	assert.Equal(t, 25, cfg.Load().Users)
	assert.Equal(t, 5.0, cfg.Load().SpawnRate)
	assert.Equal(t, 2*time.Minute, cfg.Load().Duration)
	assert.Equal(t, "http://api.test", cfg.Load().Host)
}
