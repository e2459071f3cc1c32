package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// Config tunes the pipeline's remote tier.
type Config struct {
	Voice string

	// RemoteTimeout bounds each remote attempt, not the whole call.
	RemoteTimeout time.Duration

	// MaxRetries is the number of remote re-attempts after the first
	// failure. The local tier is never retried.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per attempt.
	RetryBackoff time.Duration
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Voice:         "default",
		RemoteTimeout: 4 * time.Second,
		MaxRetries:    2,
		RetryBackoff:  500 * time.Millisecond,
	}
}

// Pipeline resolves announcement text to playable audio: cache first, then
// the remote provider with bounded retries, then the local fallback.
// Concurrent requests for the same cache key coalesce into a single
// synthesis call.
type Pipeline struct {
	remote Provider
	local  Provider
	cache  *Cache
	cfg    Config

	group singleflight.Group
}

// NewPipeline creates a pipeline. remote may be nil, in which case every
// miss goes straight to the local synthesizer.
func NewPipeline(remote, local Provider, cache *Cache, cfg Config) *Pipeline {
	if cfg.Voice == "" {
		cfg.Voice = DefaultConfig().Voice
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = DefaultConfig().RemoteTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}
	return &Pipeline{
		remote: remote,
		local:  local,
		cache:  cache,
		cfg:    cfg,
	}
}

// Cache exposes the pipeline's cache for stats and persistence.
func (p *Pipeline) Cache() *Cache { return p.cache }

// Speak returns playable WAV audio for the text. A cache hit within TTL
// returns synchronously with no synthesis work. On total failure of both
// tiers it returns ErrUnavailable, which callers treat as "skip this
// announcement".
func (p *Pipeline) Speak(ctx context.Context, text string) ([]byte, error) {
	key := Key(text, p.cfg.Voice)

	if entry, ok := p.cache.Get(key); ok {
		return entry.Audio, nil
	}

	// Coalesce concurrent misses for the same key into one synthesis.
	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		// A racing caller may have populated the cache while we waited
		// on the flight group.
		if entry, ok := p.cache.Get(key); ok {
			return entry.Audio, nil
		}
		return p.synthesize(ctx, key, text)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (p *Pipeline) synthesize(ctx context.Context, key, text string) ([]byte, error) {
	if audio, err := p.tryRemote(ctx, text); err == nil {
		p.store(key, audio, p.remote.Name())
		return audio, nil
	} else if p.remote != nil {
		log.Warn("remote synthesis failed, falling back to local", "err", err)
	}

	audio, err := p.local.Synthesize(ctx, text, p.cfg.Voice)
	if err != nil {
		log.Error("local synthesis failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.store(key, audio, p.local.Name())
	return audio, nil
}

// tryRemote runs the remote tier with per-attempt timeout and exponential
// backoff between attempts.
func (p *Pipeline) tryRemote(ctx context.Context, text string) ([]byte, error) {
	if p.remote == nil {
		return nil, ErrRemoteUnavailable
	}

	var lastErr error
	backoff := p.cfg.RetryBackoff

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.RemoteTimeout)
		audio, err := p.remote.Synthesize(attemptCtx, text, p.cfg.Voice)
		cancel()

		if err == nil {
			return audio, nil
		}
		lastErr = err
		log.Debug("remote synthesis attempt failed",
			"attempt", attempt+1, "max", p.cfg.MaxRetries+1, "err", err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

func (p *Pipeline) store(key string, audio []byte, provider string) {
	err := p.cache.Put(&Entry{
		Key:       key,
		Audio:     audio,
		Provider:  provider,
		CreatedAt: time.Now(),
		TTL:       DefaultTTL,
	})
	if err != nil {
		log.Debug("unable to cache synthesized audio", "err", err)
	}
}
