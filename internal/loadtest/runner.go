package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/marquee/internal/config"
)

// Report is the outcome of one load run.
type Report struct {
	RunID   string        `json:"run_id" yaml:"run_id"`
	Users   int           `json:"users" yaml:"users"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Stats   []Entry       `json:"stats" yaml:"stats"`
}

// Runner spawns virtual users against one host.
type Runner struct {
	cfg    config.LoadConfig
	client HTTPDoer
	logger *zap.Logger
}

// NewRunner validates cfg and creates a runner sharing client across users.
func NewRunner(cfg config.LoadConfig, client HTTPDoer, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	u, err := url.Parse(cfg.Host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("load host %q must be an absolute URL", cfg.Host)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid load configuration: %w", err)
	}
	return &Runner{cfg: cfg, client: client, logger: logger.Named("loadtest")}, nil
}

// Run spawns users at the configured rate and lets them work until the
// duration elapses or ctx is cancelled. Failed requests only show up in the
// report's statistics.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID))

	runCtx := ctx
	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}

	stats := NewStats()
	limiter := rate.NewLimiter(rate.Limit(r.cfg.SpawnRate), 1)
	g, gctx := errgroup.WithContext(runCtx)
	start := time.Now()

	log.Info("Starting load run.",
		zap.String("host", r.cfg.Host),
		zap.Int("users", r.cfg.Users),
		zap.Float64("spawn_rate", r.cfg.SpawnRate),
		zap.Duration("duration", r.cfg.Duration),
	)

	spawned := 0
	for i := 0; i < r.cfg.Users; i++ {
		if err := limiter.Wait(gctx); err != nil {
			// The run ended before every user was spawned.
			break
		}
		vu := NewVirtualUser(uuid.NewString(), r.client, r.cfg, stats,
			rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(i))), log)
		spawned++
		g.Go(func() error {
			if err := vu.Start(gctx); err != nil {
				return nil
			}
			vu.Run(gctx)
			return nil
		})
	}

	_ = g.Wait()
	elapsed := time.Since(start)
	requests, failures := stats.Totals()
	log.Info("Load run finished.",
		zap.Int("users", spawned),
		zap.Int("requests", requests),
		zap.Int("failures", failures),
		zap.Duration("elapsed", elapsed),
	)

	return &Report{
		RunID:   runID,
		Users:   spawned,
		Elapsed: elapsed,
		Stats:   stats.Snapshot(),
	}, nil
}
