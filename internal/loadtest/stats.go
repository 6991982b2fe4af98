package loadtest

import (
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Entry summarises the requests recorded under one name.
type Entry struct {
	Name     string        `json:"name" yaml:"name"`
	Requests int           `json:"requests" yaml:"requests"`
	Failures int           `json:"failures" yaml:"failures"`
	Min      time.Duration `json:"min" yaml:"min"`
	Max      time.Duration `json:"max" yaml:"max"`
	Mean     time.Duration `json:"mean" yaml:"mean"`
	P50      time.Duration `json:"p50" yaml:"p50"`
	P95      time.Duration `json:"p95" yaml:"p95"`
}

type series struct {
	failures  int
	latencies []time.Duration
}

// Stats aggregates request outcomes by name. It is safe for concurrent use.
type Stats struct {
	mu     sync.Mutex
	series map[string]*series
}

func NewStats() *Stats {
	return &Stats{series: make(map[string]*series)}
}

// Record adds one request outcome.
func (s *Stats) Record(name string, latency time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.series[name]
	if !ok {
		e = &series{}
		s.series[name] = e
	}
	e.latencies = append(e.latencies, latency)
	if failed {
		e.failures++
	}
}

// Requests returns how many requests were recorded under name.
func (s *Stats) Requests(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.series[name]; ok {
		return len(e.latencies)
	}
	return 0
}

// Totals sums requests and failures across every name.
func (s *Stats) Totals() (requests, failures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.series {
		requests += len(e.latencies)
		failures += e.failures
	}
	return requests, failures
}

// Snapshot returns one entry per name, sorted by name.
func (s *Stats) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.series))
	for name, e := range s.series {
		sorted := slices.Clone(e.latencies)
		slices.Sort(sorted)
		n := len(sorted)
		out = append(out, Entry{
			Name:     name,
			Requests: n,
			Failures: e.failures,
			Min:      sorted[0],
			Max:      sorted[n-1],
			Mean:     lo.Sum(sorted) / time.Duration(n),
			P50:      percentile(sorted, 0.50),
			P95:      percentile(sorted, 0.95),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
