// Package tracker counts cache and API outcomes per provider for the
// end-of-run summary.
package tracker

import (
	"log/slog"
	"sort"
	"sync"
)

// Event is one countable outcome of a request.
type Event int

const (
	CacheHit Event = iota
	CacheMiss
	APISuccess
	APIFailure
	// APIZero is a successful call that returned nothing useful
	// (missing entity, empty search).
	APIZero
	numEvents
)

// Tracker counts events per provider. A nil *Tracker discards everything.
type Tracker struct {
	mu     sync.Mutex
	counts map[string]*[numEvents]int64
}

// ProviderStats is a snapshot of one provider's counters.
type ProviderStats struct {
	CacheHits     int64
	CacheMisses   int64
	APISuccess    int64
	APIFailures   int64
	APIZeroResult int64
}

// HitRate returns the share of cache lookups that hit, or 0 without lookups.
func (s ProviderStats) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{counts: make(map[string]*[numEvents]int64)}
}

// Record counts one event for provider.
func (t *Tracker) Record(provider string, e Event) {
	if t == nil || e < 0 || e >= numEvents {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.counts[provider]
	if c == nil {
		c = new([numEvents]int64)
		t.counts[provider] = c
	}
	c[e]++
}

func (t *Tracker) TrackCacheHit(provider string)   { t.Record(provider, CacheHit) }
func (t *Tracker) TrackCacheMiss(provider string)  { t.Record(provider, CacheMiss) }
func (t *Tracker) TrackAPISuccess(provider string) { t.Record(provider, APISuccess) }
func (t *Tracker) TrackAPIFailure(provider string) { t.Record(provider, APIFailure) }
func (t *Tracker) TrackAPIZero(provider string)    { t.Record(provider, APIZero) }

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]ProviderStats, len(t.counts))
	for p, c := range t.counts {
		out[p] = ProviderStats{
			CacheHits:     c[CacheHit],
			CacheMisses:   c[CacheMiss],
			APISuccess:    c[APISuccess],
			APIFailures:   c[APIFailure],
			APIZeroResult: c[APIZero],
		}
	}
	return out
}

// LogSummary writes one line per provider, sorted by name. Providers
// that never consulted a cache report cache=none.
func (t *Tracker) LogSummary(logger *slog.Logger) {
	snap := t.Snapshot()
	providers := make([]string, 0, len(snap))
	for p := range snap {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	for _, p := range providers {
		s := snap[p]
		args := []any{"provider", p}
		if s.CacheHits+s.CacheMisses > 0 {
			args = append(args,
				"cache_hits", s.CacheHits,
				"cache_misses", s.CacheMisses,
				"hit_rate", s.HitRate(),
			)
		} else {
			args = append(args, "cache", "none")
		}
		args = append(args,
			"success", s.APISuccess,
			"failures", s.APIFailures,
			"zero_results", s.APIZeroResult,
		)
		logger.Info("API usage", args...)
	}
}
