package tracker

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tr := New()
	assert.Empty(t, tr.Snapshot())

	tr.TrackCacheHit("wikidata")
	tr.TrackCacheHit("wikidata")
	tr.TrackCacheMiss("wikidata")
	tr.TrackAPISuccess("wikidata")
	tr.TrackAPIFailure("wikidata")
	tr.TrackAPIZero("wikidata")
	tr.Record("wikidata", Event(42)) // ignored

	stats, ok := tr.Snapshot()["wikidata"]
	require.True(t, ok)
	assert.Equal(t, ProviderStats{
		CacheHits:     2,
		CacheMisses:   1,
		APISuccess:    1,
		APIFailures:   1,
		APIZeroResult: 1,
	}, stats)
	assert.InDelta(t, 2.0/3.0, stats.HitRate(), 1e-9)
}

func TestTracker_Nil(t *testing.T) {
	var tr *Tracker
	tr.TrackAPISuccess("wikidata")
	assert.Nil(t, tr.Snapshot())
	assert.Zero(t, ProviderStats{}.HitRate())
}

func TestTracker_Concurrent(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackAPISuccess("wikidata")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), tr.Snapshot()["wikidata"].APISuccess)
}

func TestLogSummary(t *testing.T) {
	tr := New()
	tr.TrackAPISuccess("wikipedia")
	tr.TrackCacheHit("wikidata")

	var buf bytes.Buffer
	tr.LogSummary(slog.New(slog.NewTextHandler(&buf, nil)))

	out := buf.String()
	wd := strings.Index(out, "provider=wikidata")
	wp := strings.Index(out, "provider=wikipedia")
	require.True(t, wd >= 0 && wp >= 0, "missing providers in summary: %q", out)
	assert.Less(t, wd, wp, "summary should be sorted by provider")
	assert.Contains(t, out, "cache_hits=1")
	assert.Contains(t, out, "hit_rate=1")

	wikipediaLine := out[wp:]
	if nl := strings.IndexByte(wikipediaLine, '\n'); nl >= 0 {
		wikipediaLine = wikipediaLine[:nl]
	}
	assert.Contains(t, wikipediaLine, "cache=none")
	assert.NotContains(t, wikipediaLine, "hit_rate")
}
