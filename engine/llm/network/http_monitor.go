package network

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/swarmworks/responder/pkg/config"
	"github.com/swarmworks/responder/pkg/logger"
)

const (
	defaultProbeTimeout    = 3 * time.Second
	defaultRefreshInterval = 30 * time.Second
	probeBackoffBase       = 100 * time.Millisecond
	probeBackoffMax        = time.Second
)

// HTTPMonitor probes health endpoints and serves the last snapshot.
// A probe counts as reachable when the endpoint answers with a status below 500.
type HTTPMonitor struct {
	client   *resty.Client
	cfg      config.NetworkConfig
	snapshot atomic.Pointer[State]
}

func NewHTTPMonitor(cfg *config.NetworkConfig) *HTTPMonitor {
	if cfg == nil {
		cfg = &config.Default().Network
	}
	c := *cfg
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
	client := resty.New().
		SetTimeout(c.ProbeTimeout).
		SetHeader("Accept", "*/*")
	return &HTTPMonitor{client: client, cfg: c}
}

// State returns the cached snapshot, probing once if none exists yet.
func (m *HTTPMonitor) State(ctx context.Context) State {
	if s := m.snapshot.Load(); s != nil {
		return *s
	}
	return m.Refresh(ctx)
}

// Refresh probes every configured endpoint and stores the new snapshot.
func (m *HTTPMonitor) Refresh(ctx context.Context) State {
	var cloud, local, online bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cloud = m.probe(gctx, m.cfg.CloudURL)
		return nil
	})
	g.Go(func() error {
		local = m.probe(gctx, m.cfg.LocalURL)
		return nil
	})
	if m.cfg.ConnectivityURL != "" {
		g.Go(func() error {
			online = m.probe(gctx, m.cfg.ConnectivityURL)
			return nil
		})
	}
	_ = g.Wait()
	if m.cfg.ConnectivityURL == "" {
		online = cloud
	}
	state := State{IsOnline: online, CloudServicesReachable: cloud && online, LocalServicesReachable: local}
	m.snapshot.Store(&state)
	logger.FromContext(ctx).Debug(
		"Network state refreshed",
		"online", state.IsOnline,
		"cloud", state.CloudServicesReachable,
		"local", state.LocalServicesReachable,
	)
	return state
}

// Run refreshes the snapshot on the configured interval until ctx is done.
func (m *HTTPMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()
	m.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

func (m *HTTPMonitor) probe(ctx context.Context, url string) bool {
	if strings.TrimSpace(url) == "" {
		return false
	}
	backoff := retry.WithMaxRetries(
		uint64(m.cfg.RetryAttempts), // #nosec G115 -- validated non-negative
		retry.WithCappedDuration(probeBackoffMax, retry.NewExponential(probeBackoffBase)),
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := m.client.R().SetContext(ctx).Get(url)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("probe %s: status %d", url, resp.StatusCode()))
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Debug("Network probe failed", "url", url, "error", err)
		return false
	}
	return true
}
