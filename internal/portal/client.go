// Package portal talks to the Dr.COM captive portal: it reads the landing
// page to detect the login state and submits credentials.
package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"autologin/internal/apperr"
	"autologin/internal/config"
	"autologin/internal/models"
	"autologin/internal/webpage"
)

const (
	probeTimeout    = 10 * time.Second
	loginTimeout    = 10 * time.Second
	probeBodyLimit  = 4096
	loginBodyLimit  = 8192
	maxResponseSize = 10 * 1024 * 1024

	loginPath     = "/drcom/login"
	loginCallback = "dr1003"
	loginKey      = "123456"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
)

// Client probes and logs into one portal.
type Client struct {
	cfg    config.NetworkConfig
	client *http.Client
	rules  []Rule
	logger *zap.Logger
}

// New creates a portal client. The http.Client may be shared with other
// probes; per-request deadlines come from contexts.
func New(cfg config.NetworkConfig, client *http.Client, logger *zap.Logger) *Client {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: client,
		rules:  WithSuccessMarker(DefaultRules(), cfg.ResultReturn),
		logger: logger,
	}
}

// Probe fetches the landing page and classifies it. Transport failures are
// returned as *apperr.NetworkError.
func (c *Client) Probe(ctx context.Context) (models.CampusStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.LoginIP, nil)
	if err != nil {
		return models.CampusNotLoggedIn, apperr.New(apperr.KindConfig, "invalid login_ip", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.CampusNotLoggedIn, apperr.ClassifyNetwork("portal probe", err)
	}
	defer resp.Body.Close()

	page, err := webpage.Read(resp, probeBodyLimit)
	if err != nil {
		return models.CampusNotLoggedIn, apperr.ClassifyNetwork("portal probe", err)
	}

	status := ClassifyPage(page.Searchable(), c.cfg.SignedInTitle, c.cfg.NotSignInTitle)
	c.logger.Debug("portal probed",
		zap.String("url", c.cfg.LoginIP),
		zap.Int("status_code", resp.StatusCode),
		zap.String("campus", string(status)))
	return status, nil
}

// Login submits the credentials. isp may be empty for campus billing. A
// rejected or unreadable response is not an error: it yields an outcome
// with Success false. Errors are reserved for transport failures.
func (c *Client) Login(ctx context.Context, username, password, isp string) (models.LoginOutcome, error) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, LoginURL(c.cfg.LoginIP, username, password, isp), nil)
	if err != nil {
		return models.LoginOutcome{Elapsed: time.Since(started)}, apperr.New(apperr.KindConfig, "invalid login_ip", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.cfg.LoginIP)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.LoginOutcome{Elapsed: time.Since(started)}, apperr.ClassifyNetwork("portal login", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxResponseSize {
		return models.LoginOutcome{Elapsed: time.Since(started)},
			apperr.ClassifyNetwork("portal login", fmt.Errorf("%w: %d bytes", apperr.ErrResponseTooLarge, resp.ContentLength))
	}

	page, err := webpage.Read(resp, loginBodyLimit)
	if err != nil {
		return models.LoginOutcome{Elapsed: time.Since(started)}, apperr.ClassifyNetwork("portal login", err)
	}

	verdict := Classify(c.rules, page.Searchable())
	outcome := models.LoginOutcome{
		Success: verdict == models.VerdictSuccess,
		Verdict: verdict,
		Excerpt: page.Text,
		Elapsed: time.Since(started),
	}
	c.logger.Debug("portal login answered",
		zap.Int("status_code", resp.StatusCode),
		zap.String("verdict", string(verdict)),
		zap.Duration("elapsed", outcome.Elapsed))
	return outcome, nil
}

// LoginURL builds the vendor's login request. The ISP suffix is omitted
// entirely for campus billing.
func LoginURL(base, username, password, isp string) string {
	account := escape(username)
	if isp != "" {
		account += "@" + escape(isp)
	}
	params := fmt.Sprintf("callback=%s&DDDDD=%s&upass=%s&0MKKey=%s",
		loginCallback, account, escape(password), loginKey)
	return strings.TrimRight(base, "/") + loginPath + "?" + params
}

// escape percent-encodes everything except unreserved characters.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
