package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "github.com/medtrackpro/medtrack/internal/errors"
)

const (
	avatarCacheTTL  = 10 * time.Minute
	avatarMaxBytes  = 1 << 20 // 1 MiB
	avatarFetchTime = 5 * time.Second
)

// Avatar is a fetched profile image ready to serve
type Avatar struct {
	ContentType string
	Data        []byte
}

// AvatarProxy fetches the profile image from its upstream URL, caches it,
// and trips a circuit breaker when the upstream misbehaves so a flaky CDN
// cannot stall every dashboard load.
type AvatarProxy struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Avatar]
	logger  *zap.Logger

	mu        sync.Mutex
	cached    *Avatar
	fetchedAt time.Time
}

func NewAvatarProxy(url string, logger *zap.Logger) *AvatarProxy {
	settings := gobreaker.Settings{
		Name:    "avatar-upstream",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &AvatarProxy{
		url:     url,
		client:  &http.Client{Timeout: avatarFetchTime},
		breaker: gobreaker.NewCircuitBreaker[*Avatar](settings),
		logger:  logger,
	}
}

// Get returns the avatar, serving from cache when fresh. A tripped breaker
// or upstream failure falls back to a stale cached copy when one exists.
func (p *AvatarProxy) Get(ctx context.Context) (*Avatar, error) {
	p.mu.Lock()
	if p.cached != nil && time.Since(p.fetchedAt) < avatarCacheTTL {
		av := p.cached
		p.mu.Unlock()
		return av, nil
	}
	p.mu.Unlock()

	av, err := p.breaker.Execute(func() (*Avatar, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		p.mu.Lock()
		stale := p.cached
		p.mu.Unlock()
		if stale != nil {
			p.logger.Warn("serving stale avatar", zap.Error(err))
			return stale, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrAssetUnavailable.Code, "avatar upstream unavailable")
	}

	p.mu.Lock()
	p.cached = av
	p.fetchedAt = time.Now()
	p.mu.Unlock()
	return av, nil
}

func (p *AvatarProxy) fetch(ctx context.Context) (*Avatar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("avatar upstream returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, avatarMaxBytes))
	if err != nil {
		return nil, err
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/png"
	}
	return &Avatar{ContentType: ct, Data: data}, nil
}
