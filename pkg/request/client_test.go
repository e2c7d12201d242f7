package request

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikifetch/pkg/cache"
	"wikifetch/pkg/db"
	"wikifetch/pkg/tracker"
)

func fastOptions() Options {
	return Options{Retries: 3, BaseDelay: 5 * time.Millisecond, Gap: -1}
}

func TestGet_Sequential(t *testing.T) {
	var conc int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&conc, 1)
		defer atomic.AddInt32(&conc, -1)
		if current > 1 {
			t.Errorf("Concurrency detected! Expected sequential.")
		}
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer svr.Close()

	client := NewWithOptions(cache.Nop{}, tracker.New(), fastOptions())

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Get(context.Background(), svr.URL, ""); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestGet_Retry(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("success"))
	}))
	defer svr.Close()

	tr := tracker.New()
	client := NewWithOptions(cache.Nop{}, tr, fastOptions())

	body, err := client.Get(context.Background(), svr.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "success", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestGet_MaxRetries(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer svr.Close()

	backoff := NewProviderBackoff(time.Millisecond, 10*time.Millisecond)
	opts := fastOptions()
	opts.Backoff = backoff
	tr := tracker.New()
	client := NewWithOptions(cache.Nop{}, tr, opts)

	_, err := client.Get(context.Background(), svr.URL, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxRetries))

	provider := normalizeProvider(svr.Listener.Addr().String())
	fc, _ := backoff.GetState(provider)
	assert.Equal(t, 1, fc, "exhausted retries should trip the provider backoff")
	assert.Equal(t, int64(1), tr.Snapshot()[provider].APIFailures)
}

func TestGet_ClientErrorNotRetried(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer svr.Close()

	client := NewWithOptions(cache.Nop{}, tracker.New(), fastOptions())
	_, err := client.Get(context.Background(), svr.URL, "")

	var se *StatusError
	require.True(t, errors.As(err, &se), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestGet_UserAgent(t *testing.T) {
	var gotUA atomic.Value
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer svr.Close()

	client := NewWithOptions(cache.Nop{}, tracker.New(), fastOptions())
	_, err := client.Get(context.Background(), svr.URL, "")
	require.NoError(t, err)
	assert.Contains(t, gotUA.Load().(string), "wikifetch/")

	opts := fastOptions()
	opts.UserAgent = "custom-agent/1.0"
	client = NewWithOptions(cache.Nop{}, tracker.New(), opts)
	_, err = client.Get(context.Background(), svr.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "custom-agent/1.0", gotUA.Load().(string))
}

func TestGet_Cache(t *testing.T) {
	var hits int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"entities":{}}`))
	}))
	defer svr.Close()

	d, err := db.Init(filepath.Join(t.TempDir(), "client_test.db"))
	require.NoError(t, err)
	defer d.Close()

	tr := tracker.New()
	client := NewWithOptions(cache.NewSQLiteCache(d, time.Hour), tr, fastOptions())

	for i := 0; i < 2; i++ {
		body, err := client.Get(context.Background(), svr.URL, "wd_test_key")
		require.NoError(t, err)
		assert.Equal(t, `{"entities":{}}`, string(body))
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second call must be served from cache")
	stats := tr.Snapshot()[normalizeProvider(svr.Listener.Addr().String())]
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
}

func TestGet_NoCacheSkipsLookups(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer svr.Close()

	tr := tracker.New()
	client := NewWithOptions(cache.Nop{}, tr, fastOptions())
	_, err := client.Get(context.Background(), svr.URL, "wd_test_key")
	require.NoError(t, err)

	stats := tr.Snapshot()[normalizeProvider(svr.Listener.Addr().String())]
	assert.Zero(t, stats.CacheHits)
	assert.Zero(t, stats.CacheMisses)
	assert.Equal(t, int64(1), stats.APISuccess)
}

func TestGetValidated_RejectedBodyNotCached(t *testing.T) {
	var hits int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			_, _ = w.Write([]byte(`bad`))
			return
		}
		_, _ = w.Write([]byte(`good`))
	}))
	defer svr.Close()

	d, err := db.Init(filepath.Join(t.TempDir(), "validated.db"))
	require.NoError(t, err)
	defer d.Close()

	errBad := errors.New("bad body")
	validate := func(b []byte) error {
		if string(b) == "bad" {
			return errBad
		}
		return nil
	}

	tr := tracker.New()
	client := NewWithOptions(cache.NewSQLiteCache(d, time.Hour), tr, fastOptions())

	body, err := client.GetValidated(context.Background(), svr.URL, "wd_validated", validate)
	require.NoError(t, err)
	assert.Equal(t, "bad", string(body), "rejected body is still handed to the caller")

	for i := 0; i < 2; i++ {
		body, err = client.GetValidated(context.Background(), svr.URL, "wd_validated", validate)
		require.NoError(t, err)
		assert.Equal(t, "good", string(body))
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "good body must be cached, bad one must not")

	stats := tr.Snapshot()[normalizeProvider(svr.Listener.Addr().String())]
	assert.Equal(t, int64(1), stats.APIFailures)
	assert.Equal(t, int64(1), stats.APISuccess)
	assert.Equal(t, int64(1), stats.CacheHits)
}

func TestGet_ContextCanceled(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer svr.Close()

	client := NewWithOptions(cache.Nop{}, tracker.New(), fastOptions())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, svr.URL, "")
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestGet_RetryAfterExtendsCooldown(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer svr.Close()

	backoff := NewProviderBackoff(time.Millisecond, time.Minute)
	opts := fastOptions()
	opts.Backoff = backoff
	client := NewWithOptions(cache.Nop{}, tracker.New(), opts)

	_, err := client.Get(context.Background(), svr.URL, "")
	var se *StatusError
	require.True(t, errors.As(err, &se), "expected StatusError in %v", err)
	assert.Equal(t, 5*time.Second, se.RetryAfter)

	_, until := backoff.GetState(normalizeProvider(svr.Listener.Addr().String()))
	assert.Greater(t, time.Until(until), 4*time.Second)
}

func TestNormalizeProvider(t *testing.T) {
	tests := map[string]string{
		"www.wikidata.org":      "wikidata",
		"query.wikidata.org":    "wikidata",
		"wikidata.org":          "wikidata",
		"en.wikipedia.org":      "wikipedia",
		"commons.wikimedia.org": "wikimedia",
		"127.0.0.1:8080":        "127.0.0.1:8080",
		"other.com":             "other.com",
	}
	for host, want := range tests {
		assert.Equal(t, want, normalizeProvider(host), host)
	}
}
