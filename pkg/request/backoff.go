package request

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProviderBackoff keeps a cool-down per provider across requests. Once a
// request to a provider has used up its retries, later requests to that
// provider wait until the cool-down has passed.
type ProviderBackoff struct {
	mu        sync.Mutex
	cooldowns map[string]*cooldown
	baseDelay time.Duration
	maxDelay  time.Duration
}

type cooldown struct {
	strikes int
	until   time.Time
}

// NewProviderBackoff creates a backoff whose cool-down doubles with every
// strike, starting at baseDelay and capped at maxDelay.
func NewProviderBackoff(baseDelay, maxDelay time.Duration) *ProviderBackoff {
	return &ProviderBackoff{
		cooldowns: make(map[string]*cooldown),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// Wait blocks while provider is cooling down, or until ctx ends.
func (b *ProviderBackoff) Wait(ctx context.Context, provider string) error {
	_, until := b.GetState(provider)
	wait := time.Until(until)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordFailure adds a strike for provider. A server supplied retryAfter
// wins over the computed delay when it is longer.
func (b *ProviderBackoff) RecordFailure(provider string, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cd := b.cooldowns[provider]
	if cd == nil {
		cd = &cooldown{}
		b.cooldowns[provider] = cd
	}
	cd.strikes++

	delay := b.delay(cd.strikes)
	if retryAfter > delay {
		delay = min(retryAfter, b.maxDelay)
	}
	cd.until = time.Now().Add(delay)
}

// RecordSuccess removes one strike; the cool-down ends with the last one.
func (b *ProviderBackoff) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cd := b.cooldowns[provider]
	if cd == nil {
		return
	}
	if cd.strikes > 0 {
		cd.strikes--
	}
	if cd.strikes == 0 {
		delete(b.cooldowns, provider)
	}
}

// delay is baseDelay * 2^(strikes-1), capped, plus up to 10% jitter.
func (b *ProviderBackoff) delay(strikes int) time.Duration {
	d := b.baseDelay << (strikes - 1)
	if d <= 0 || d > b.maxDelay {
		d = b.maxDelay
	}
	return d + time.Duration(rand.Int63n(int64(d)/10+1))
}

// GetState returns the strike count and the end of the cool-down.
func (b *ProviderBackoff) GetState(provider string) (strikes int, until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cd := b.cooldowns[provider]; cd != nil {
		return cd.strikes, cd.until
	}
	return 0, time.Time{}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. It returns zero when the header is absent or malformed.
func parseRetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
