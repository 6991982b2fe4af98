// Package loadtest simulates concurrent customers against the cinema API.
package loadtest

import (
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/config"
)

// Request names, as reported in the statistics.
const (
	NameFilms           = "GET /api/films"
	NameFilmDetail      = "GET /api/films/:id"
	NameFilmsForBooking = "GET /api/films (for booking)"
	NameShowtimes       = "GET /api/showtimes?film_id"
	NameSeatStatuses    = "GET /api/seat-statuses"
	NameBookings        = "POST /api/bookings"
)

const statusAvailable = "Available"

// HTTPDoer sends requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// VirtualUser is one simulated customer. Apart from the client and the
// stats sink it shares nothing with other users.
type VirtualUser struct {
	ID string

	client HTTPDoer
	cfg    config.LoadConfig
	host   string
	stats  *Stats
	rng    *rand.Rand
	logger *zap.Logger

	token  string
	userID string
}

// NewVirtualUser creates a user whose random choices come from rng.
func NewVirtualUser(id string, client HTTPDoer, cfg config.LoadConfig, stats *Stats, rng *rand.Rand, logger *zap.Logger) *VirtualUser {
	if logger == nil {
		logger = zap.NewNop()
	}
	userID := cfg.UserID
	if userID == "" {
		userID = DefaultUserID
	}
	return &VirtualUser{
		ID:     id,
		client: client,
		cfg:    cfg,
		host:   strings.TrimRight(cfg.Host, "/"),
		stats:  stats,
		rng:    rng,
		logger: logger.With(zap.String("vu", id)),
		userID: userID,
	}
}

// Start logs in when credentials are configured. A failed login leaves the
// user unauthenticated; only a cancelled context is an error.
func (u *VirtualUser) Start(ctx context.Context) error {
	if u.cfg.User == "" || u.cfg.Pass == "" {
		return nil
	}
	path := u.cfg.Paths.Login
	status, body := u.request(ctx, http.MethodPost, path, "POST "+path, loginRequest{Email: u.cfg.User, Password: u.cfg.Pass})
	if err := ctx.Err(); err != nil {
		return err
	}
	if status != http.StatusOK {
		return nil
	}
	token := tokenFrom(body)
	if token == "" {
		return nil
	}
	u.token = token
	if u.cfg.UserID == "" || u.cfg.UserID == DefaultUserID {
		if sub, ok := subjectOf(token); ok {
			u.userID = sub
		}
	}
	u.logger.Debug("Logged in.", zap.String("user_id", u.userID))
	return nil
}

// Run executes weighted tasks until ctx ends.
func (u *VirtualUser) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if u.rng.IntN(u.cfg.BrowseWeight+u.cfg.BookWeight) < u.cfg.BrowseWeight {
			u.browse(ctx)
		} else {
			u.book(ctx)
		}
		if !sleep(ctx, u.pause()) {
			return
		}
	}
}

func (u *VirtualUser) pause() time.Duration {
	spread := u.cfg.MaxWait - u.cfg.MinWait
	if spread <= 0 {
		return u.cfg.MinWait
	}
	return u.cfg.MinWait + time.Duration(u.rng.Int64N(int64(spread)+1))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// browse lists films and fetches the detail of one at random.
func (u *VirtualUser) browse(ctx context.Context) {
	films, ok := u.list(ctx, u.cfg.Paths.Films, NameFilms)
	if !ok {
		return
	}
	id, ok := idOf(u.pick(films), filmIDKeys...)
	if !ok {
		return
	}
	path := strings.ReplaceAll(u.cfg.Paths.FilmDetail, "{id}", url.PathEscape(idString(id)))
	u.request(ctx, http.MethodGet, path, NameFilmDetail, nil)
}

// book walks film, showtime and seat selection, then posts a booking. Any
// stage without a usable candidate ends the task before the POST.
func (u *VirtualUser) book(ctx context.Context) {
	films, ok := u.list(ctx, u.cfg.Paths.Films, NameFilmsForBooking)
	if !ok {
		return
	}
	filmID, ok := idOf(u.pick(films), "id")
	if !ok {
		return
	}

	showtimes, ok := u.list(ctx, withQuery(u.cfg.Paths.Showtimes, "film_id", filmID), NameShowtimes)
	if !ok {
		return
	}
	showtimeID, ok := idOf(u.pick(showtimes), "id")
	if !ok {
		return
	}

	seats, ok := u.list(ctx, withQuery(u.cfg.Paths.SeatStatuses, "showtime_id", showtimeID), NameSeatStatuses)
	if !ok {
		return
	}
	available := lo.Filter(seats, func(s record, _ int) bool { return s["status"] == statusAvailable })
	u.rng.Shuffle(len(available), func(i, j int) { available[i], available[j] = available[j], available[i] })
	seatIDs := lo.FilterMap(available[:min(len(available), u.seatsPerBooking())], func(s record, _ int) (any, bool) {
		return idOf(s, seatIDKeys...)
	})
	if len(seatIDs) == 0 {
		return
	}

	u.request(ctx, http.MethodPost, u.cfg.Paths.Bookings, NameBookings, bookingRequest{
		UserID:     u.userID,
		ShowtimeID: showtimeID,
		Status:     "Pending",
		SeatIDs:    seatIDs,
	})
}

func (u *VirtualUser) seatsPerBooking() int {
	if u.cfg.SeatsPerBooking > 0 {
		return u.cfg.SeatsPerBooking
	}
	return 2
}

func (u *VirtualUser) pick(rs []record) record {
	return rs[u.rng.IntN(len(rs))]
}

func withQuery(path, key string, id any) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + key + "=" + url.QueryEscape(idString(id))
}

// list GETs path and decodes a non-empty JSON array of objects.
func (u *VirtualUser) list(ctx context.Context, path, name string) ([]record, bool) {
	status, body := u.request(ctx, http.MethodGet, path, name, nil)
	if status != http.StatusOK {
		return nil, false
	}
	rs := records(body)
	return rs, len(rs) > 0
}

// request sends one request and records its outcome under name. It returns
// zero as the status when the request never completed.
func (u *VirtualUser) request(ctx context.Context, method, path, name string, payload any) (int, []byte) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			u.logger.Debug("Could not encode request body.", zap.String("name", name), zap.Error(err))
			return 0, nil
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.host+path, body)
	if err != nil {
		u.logger.Debug("Could not build request.", zap.String("name", name), zap.Error(err))
		return 0, nil
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	start := time.Now()
	resp, err := u.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// The run ended mid-flight; that is not a server failure.
			return 0, nil
		}
		u.stats.Record(name, time.Since(start), true)
		u.logger.Debug("Request failed.", zap.String("name", name), zap.Error(err))
		return 0, nil
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil && ctx.Err() != nil {
		return 0, nil
	}

	failed := err != nil || resp.StatusCode >= http.StatusBadRequest
	u.stats.Record(name, elapsed, failed)
	if failed {
		u.logger.Debug("Request failed.",
			zap.String("name", name),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
	}
	if err != nil {
		return 0, nil
	}
	return resp.StatusCode, data
}
