package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	App() AppConfig
	Accept() AcceptConfig
	Credentials() CredentialsConfig
	Fixture() FixtureConfig
	Load() LoadConfig

	// Browser Setters
	SetBrowserHeadless(bool)

	// Accept Setters
	SetAcceptPaths([]string)
	SetAcceptTags(string)
	SetAcceptFormat(string)

	// Load Setters
	SetLoadUsers(int)
	SetLoadSpawnRate(float64)
	SetLoadDuration(time.Duration)
	SetLoadHost(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	AppCfg         AppConfig         `mapstructure:"app" yaml:"app"`
	AcceptCfg      AcceptConfig      `mapstructure:"accept" yaml:"accept"`
	CredentialsCfg CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	FixtureCfg     FixtureConfig     `mapstructure:"fixture" yaml:"fixture"`
	LoadCfg        LoadConfig        `mapstructure:"load" yaml:"load"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) App() AppConfig                 { return c.AppCfg }
func (c *Config) Accept() AcceptConfig           { return c.AcceptCfg }
func (c *Config) Credentials() CredentialsConfig { return c.CredentialsCfg }
func (c *Config) Fixture() FixtureConfig         { return c.FixtureCfg }
func (c *Config) Load() LoadConfig               { return c.LoadCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }

func (c *Config) SetAcceptPaths(p []string) { c.AcceptCfg.Paths = p }
func (c *Config) SetAcceptTags(t string)    { c.AcceptCfg.Tags = t }
func (c *Config) SetAcceptFormat(f string)  { c.AcceptCfg.Format = f }

func (c *Config) SetLoadUsers(n int)              { c.LoadCfg.Users = n }
func (c *Config) SetLoadSpawnRate(r float64)      { c.LoadCfg.SpawnRate = r }
func (c *Config) SetLoadDuration(d time.Duration) { c.LoadCfg.Duration = d }
func (c *Config) SetLoadHost(h string)            { c.LoadCfg.Host = h }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance driven by the step library.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Debug             bool          `mapstructure:"debug" yaml:"debug"`
}

// AppConfig describes the application under test and how patiently to drive it.
type AppConfig struct {
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	WaitSeconds  int           `mapstructure:"wait_seconds" yaml:"wait_seconds"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// TypingDelay is the pause between keystrokes when a field is typed slowly.
	TypingDelay      time.Duration `mapstructure:"typing_delay" yaml:"typing_delay"`
	RedirectGrace    time.Duration `mapstructure:"redirect_grace" yaml:"redirect_grace"`
	PaymentProofPath string        `mapstructure:"payment_proof_path" yaml:"payment_proof_path"`
	StatusPoll       PollConfig    `mapstructure:"status_poll" yaml:"status_poll"`
	SessionPoll      PollConfig    `mapstructure:"session_poll" yaml:"session_poll"`
}

// WaitTimeout is the default bound for every condition wait.
func (a AppConfig) WaitTimeout() time.Duration {
	return time.Duration(a.WaitSeconds) * time.Second
}

// PollConfig bounds a retry loop.
type PollConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Delay    time.Duration `mapstructure:"delay" yaml:"delay"`
}

// AcceptConfig controls the godog run behind `marquee accept`.
type AcceptConfig struct {
	Paths         []string `mapstructure:"paths" yaml:"paths"`
	Format        string   `mapstructure:"format" yaml:"format"`
	Tags          string   `mapstructure:"tags" yaml:"tags"`
	StopOnFailure bool     `mapstructure:"stop_on_failure" yaml:"stop_on_failure"`
	Strict        bool     `mapstructure:"strict" yaml:"strict"`
}

// Account is a seeded login known to the ensure-logged-in step.
type Account struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"password"`
	Role     string `mapstructure:"role" yaml:"role"`
}

// CredentialsConfig is the lookup table used when a scenario asks to be logged in.
// Accounts is a list rather than a map because viper splits map keys on dots.
type CredentialsConfig struct {
	Accounts        []Account `mapstructure:"accounts" yaml:"accounts"`
	DefaultPassword string    `mapstructure:"default_password" yaml:"-"`
}

// Lookup returns the account registered for email, or a synthesized
// customer account carrying the default password.
func (c CredentialsConfig) Lookup(email string) Account {
	for _, a := range c.Accounts {
		if strings.EqualFold(a.Email, email) {
			return a
		}
	}
	return Account{Email: email, Password: c.DefaultPassword, Role: "customer"}
}

// FixtureConfig points at the backend data reset before a run.
type FixtureConfig struct {
	Driver      string   `mapstructure:"driver" yaml:"driver"`
	Path        string   `mapstructure:"path" yaml:"path"`
	DatabaseURL string   `mapstructure:"database_url" yaml:"-"`
	Collections []string `mapstructure:"collections" yaml:"collections"`
	FilmMarker  string   `mapstructure:"film_marker" yaml:"film_marker"`
	AuthUser    string   `mapstructure:"auth_user" yaml:"auth_user"`
}

// LoadPaths are the API routes exercised by virtual users.
type LoadPaths struct {
	Films        string `mapstructure:"films" yaml:"films"`
	FilmDetail   string `mapstructure:"film_detail" yaml:"film_detail"`
	Showtimes    string `mapstructure:"showtimes" yaml:"showtimes"`
	SeatStatuses string `mapstructure:"seat_statuses" yaml:"seat_statuses"`
	Bookings     string `mapstructure:"bookings" yaml:"bookings"`
	Login        string `mapstructure:"login" yaml:"login"`
}

// LoadConfig configures the HTTP load model.
type LoadConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Users           int           `mapstructure:"users" yaml:"users"`
	SpawnRate       float64       `mapstructure:"spawn_rate" yaml:"spawn_rate"`
	Duration        time.Duration `mapstructure:"duration" yaml:"duration"`
	MinWait         time.Duration `mapstructure:"min_wait" yaml:"min_wait"`
	MaxWait         time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
	BrowseWeight    int           `mapstructure:"browse_weight" yaml:"browse_weight"`
	BookWeight      int           `mapstructure:"book_weight" yaml:"book_weight"`
	SeatsPerBooking int           `mapstructure:"seats_per_booking" yaml:"seats_per_booking"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	User            string        `mapstructure:"user" yaml:"user"`
	Pass            string        `mapstructure:"pass" yaml:"-"`
	UserID          string        `mapstructure:"user_id" yaml:"user_id"`
	Paths           LoadPaths     `mapstructure:"paths" yaml:"paths"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "marquee")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.window_width", 1366)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.debug", false)

	// -- App --
	v.SetDefault("app.base_url", "http://127.0.0.1:5000")
	v.SetDefault("app.wait_seconds", 60)
	v.SetDefault("app.poll_interval", "250ms")
	v.SetDefault("app.typing_delay", "50ms")
	v.SetDefault("app.redirect_grace", "3s")
	v.SetDefault("app.payment_proof_path", "~/Pictures/payment.jpg")
	v.SetDefault("app.status_poll.attempts", 5)
	v.SetDefault("app.status_poll.delay", "3s")
	v.SetDefault("app.session_poll.attempts", 5)
	v.SetDefault("app.session_poll.delay", "1s")

	// -- Accept --
	v.SetDefault("accept.paths", []string{"features"})
	v.SetDefault("accept.format", "pretty")
	v.SetDefault("accept.strict", true)

	// -- Credentials --
	v.SetDefault("credentials.accounts", []map[string]string{
		{"email": "admin@cinema.com", "password": "adminbiasa", "role": "admin"},
		{"email": "testuser9@example.com", "password": "test123", "role": "customer"},
	})
	v.SetDefault("credentials.default_password", "test123")

	// -- Fixture --
	v.SetDefault("fixture.driver", "file")
	v.SetDefault("fixture.path", "server/db.json")
	v.SetDefault("fixture.collections", []string{"bookings", "booking_seats", "seat_statuses"})
	v.SetDefault("fixture.film_marker", "test movie")
	v.SetDefault("fixture.auth_user", "testuser9@example.com")

	// -- Load --
	v.SetDefault("load.users", 10)
	v.SetDefault("load.spawn_rate", 2.0)
	v.SetDefault("load.duration", "1m")
	v.SetDefault("load.min_wait", "1s")
	v.SetDefault("load.max_wait", "3s")
	v.SetDefault("load.browse_weight", 3)
	v.SetDefault("load.book_weight", 1)
	v.SetDefault("load.seats_per_booking", 2)
	v.SetDefault("load.request_timeout", "30s")
	v.SetDefault("load.user_id", "locust-user")
	v.SetDefault("load.paths.films", "/api/films")
	v.SetDefault("load.paths.film_detail", "/api/films/{id}")
	v.SetDefault("load.paths.showtimes", "/api/showtimes")
	v.SetDefault("load.paths.seat_statuses", "/api/seat-statuses")
	v.SetDefault("load.paths.bookings", "/api/bookings")
	v.SetDefault("load.paths.login", "/api/auth/login")
}

// legacyEnv maps config keys onto the environment names the existing
// test environment already exports.
var legacyEnv = map[string]string{
	"app.base_url":             "BASE_URL",
	"app.wait_seconds":         "WAIT_SECONDS",
	"load.paths.films":         "LOCUST_FILMS_PATH",
	"load.paths.film_detail":   "LOCUST_FILM_DETAIL_PATH",
	"load.paths.showtimes":     "LOCUST_SHOWTIMES_PATH",
	"load.paths.seat_statuses": "LOCUST_SEAT_STATUSES_PATH",
	"load.paths.bookings":      "LOCUST_BOOKINGS_PATH",
	"load.paths.login":         "LOCUST_LOGIN_PATH",
	"load.user":                "LOCUST_USER",
	"load.pass":                "LOCUST_PASS",
	"load.user_id":             "LOCUST_USER_ID",
	"fixture.database_url":     "DATABASE_URL",
}

// BindLegacyEnv binds each key to its prefixed name first and its legacy name second.
func BindLegacyEnv(v *viper.Viper) {
	for key, env := range legacyEnv {
		prefixed := "MARQUEE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, env)
	}
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	BindLegacyEnv(v)

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.AppCfg.BaseURL); err != nil {
		return fmt.Errorf("app.base_url must be an absolute URL: %w", err)
	}
	if c.AppCfg.WaitSeconds <= 0 {
		return fmt.Errorf("app.wait_seconds must be a positive integer")
	}
	if c.AppCfg.PollInterval <= 0 {
		return fmt.Errorf("app.poll_interval must be a positive duration")
	}
	if err := c.AppCfg.StatusPoll.Validate(); err != nil {
		return fmt.Errorf("app.status_poll configuration invalid: %w", err)
	}
	if err := c.AppCfg.SessionPoll.Validate(); err != nil {
		return fmt.Errorf("app.session_poll configuration invalid: %w", err)
	}
	if err := c.FixtureCfg.Validate(); err != nil {
		return fmt.Errorf("fixture configuration invalid: %w", err)
	}
	if err := c.LoadCfg.Validate(); err != nil {
		return fmt.Errorf("load configuration invalid: %w", err)
	}
	return nil
}

// Validate checks a retry budget.
func (p PollConfig) Validate() error {
	if p.Attempts <= 0 {
		return fmt.Errorf("attempts must be greater than 0")
	}
	if p.Delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	return nil
}

// Validate checks the fixture driver selection.
func (f FixtureConfig) Validate() error {
	switch f.Driver {
	case "none":
		return nil
	case "file":
		if f.Path == "" {
			return fmt.Errorf("path is required for the file driver")
		}
	case "postgres":
		if f.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the postgres driver. Ensure DATABASE_URL is set")
		}
	default:
		return fmt.Errorf("unknown driver %q", f.Driver)
	}
	return nil
}

// Validate checks the load model settings.
func (l LoadConfig) Validate() error {
	if l.Users <= 0 {
		return fmt.Errorf("users must be a positive integer")
	}
	if l.SpawnRate <= 0 {
		return fmt.Errorf("spawn_rate must be positive")
	}
	if l.MinWait < 0 || l.MaxWait < l.MinWait {
		return fmt.Errorf("wait window [%s, %s] is invalid", l.MinWait, l.MaxWait)
	}
	if l.BrowseWeight < 0 || l.BookWeight < 0 || l.BrowseWeight+l.BookWeight == 0 {
		return fmt.Errorf("task weights must be non-negative with a positive sum")
	}
	if !strings.Contains(l.Paths.FilmDetail, "{id}") {
		return fmt.Errorf("paths.film_detail must contain an {id} placeholder")
	}
	return nil
}
