package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// RemoteConfig configures the hosted synthesis provider.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RequestsPerMinute bounds outbound synthesis calls; hosted TTS
	// plans meter by request.
	RequestsPerMinute int
}

// DefaultRemoteConfig returns production defaults.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Timeout:           5 * time.Second,
		RequestsPerMinute: 60,
	}
}

// RemoteProvider synthesizes speech through a hosted HTTP API. The wire
// contract is narrow on purpose: text + voice + credentials out, WAV
// bytes or a typed failure back.
type RemoteProvider struct {
	cfg     RemoteConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewRemoteProvider creates a remote provider. The returned provider is
// safe for concurrent use.
func NewRemoteProvider(cfg RemoteConfig) *RemoteProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteConfig().Timeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRemoteConfig().RequestsPerMinute
	}
	return &RemoteProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

// Name implements Provider.
func (p *RemoteProvider) Name() string { return "remote" }

type synthesisRequest struct {
	Text         string `json:"text"`
	OutputFormat string `json:"output_format"`
}

// Synthesize implements Provider. Failures are classified so the pipeline
// can decide between retry and fallback.
func (p *RemoteProvider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if p.cfg.BaseURL == "" || p.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: provider not configured", ErrRemoteUnavailable)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	body, err := json.Marshal(synthesisRequest{Text: text, OutputFormat: "wav"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", p.cfg.BaseURL, url.PathEscape(voice))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")
	req.Header.Set("xi-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		return nil, fmt.Errorf("%w: network: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrAuthentication, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRemoteUnavailable, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrRemoteUnavailable)
	}
	return audio, nil
}
