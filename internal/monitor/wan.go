// Package monitor decides whether the wide-area network is reachable by
// racing requests to well-known external sites.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"autologin/internal/webpage"
)

const (
	defaultLegTimeout  = 5 * time.Second
	defaultBodyTimeout = 3 * time.Second
	wanBodyLimit       = 64 * 1024
)

// DefaultSites are raced by every WAN check.
var DefaultSites = []string{
	"https://www.baidu.com",
	"https://www.qq.com",
	"https://www.sina.com.cn",
	"https://www.alibaba.com",
	"https://www.bytedance.com/",
}

// WanProber races GETs against external sites. Captive portals answer any
// outbound HTTP with their own login page, so a 2xx alone is not enough: a
// leg that ends on the portal host or returns the portal's login page
// counts as a failure.
type WanProber struct {
	client            *http.Client
	sites             []string
	portalHost        string
	notSignedInMarker string
	legTimeout        time.Duration
	bodyTimeout       time.Duration
	logger            *zap.Logger
}

// Option customises a WanProber.
type Option func(*WanProber)

// WithSites replaces the raced sites.
func WithSites(sites ...string) Option {
	return func(p *WanProber) { p.sites = sites }
}

// WithTimeouts overrides the per-leg request and body read timeouts.
func WithTimeouts(leg, body time.Duration) Option {
	return func(p *WanProber) {
		if leg > 0 {
			p.legTimeout = leg
		}
		if body > 0 {
			p.bodyTimeout = body
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *WanProber) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewWanProber creates a prober that treats portalURL's host and
// notSignedInMarker as evidence of a captive portal.
func NewWanProber(client *http.Client, portalURL, notSignedInMarker string, opts ...Option) *WanProber {
	if client == nil {
		client = NewHTTPClient()
	}
	p := &WanProber{
		client:            client,
		sites:             DefaultSites,
		portalHost:        hostOf(portalURL),
		notSignedInMarker: notSignedInMarker,
		legTimeout:        defaultLegTimeout,
		bodyTimeout:       defaultBodyTimeout,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Race returns true as soon as one leg succeeds. Remaining legs are not
// aborted: they observe the shared flag at their next checkpoint and their
// results are dropped.
func (p *WanProber) Race(ctx context.Context) bool {
	if len(p.sites) == 0 {
		return false
	}

	var won atomic.Bool
	results := make(chan bool, len(p.sites))
	for _, site := range p.sites {
		go func(site string) {
			results <- p.leg(ctx, site, &won)
		}(site)
	}

	for range p.sites {
		select {
		case ok := <-results:
			if ok {
				won.Store(true)
				return true
			}
		case <-ctx.Done():
			won.Store(true)
			return false
		}
	}
	return false
}

func (p *WanProber) leg(ctx context.Context, site string, won *atomic.Bool) bool {
	if won.Load() {
		return false
	}

	legCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(legCtx, http.MethodGet, site, nil)
	if err != nil {
		p.logger.Debug("wan leg invalid", zap.String("site", site), zap.Error(err))
		return false
	}

	timer := time.AfterFunc(p.legTimeout, cancel)
	resp, err := p.client.Do(req)
	timer.Stop()
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			p.logger.Debug("wan leg timed out", zap.String("site", site))
		} else {
			p.logger.Debug("wan leg failed", zap.String("site", site), zap.Error(err))
		}
		return false
	}
	defer resp.Body.Close()

	if won.Load() {
		return false
	}
	if p.isPortal(resp.Request.URL) {
		p.logger.Debug("wan leg redirected to portal", zap.String("site", site))
		return false
	}

	bodyTimer := time.AfterFunc(p.bodyTimeout, cancel)
	defer bodyTimer.Stop()
	page, err := webpage.Read(resp, wanBodyLimit)
	if err == nil && page.Contains(p.notSignedInMarker) {
		p.logger.Debug("wan leg served portal page", zap.String("site", site))
		return false
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (p *WanProber) isPortal(u *url.URL) bool {
	if u == nil || p.portalHost == "" {
		return false
	}
	return strings.EqualFold(u.Hostname(), p.portalHost)
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}
