package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const portalURL = "http://10.0.1.5/"

func server(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("<html>hello</html>"))
}

func TestRaceReturnsOnFirstSuccess(t *testing.T) {
	release := make(chan struct{})
	slow := server(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	fast := server(t, okHandler)
	t.Cleanup(func() { close(release) })

	p := NewWanProber(nil, portalURL, "上网登录页",
		WithSites(slow.URL, slow.URL, fast.URL),
		WithTimeouts(4*time.Second, time.Second))

	started := time.Now()
	assert.True(t, p.Race(context.Background()))
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestRaceAllLegsFail(t *testing.T) {
	errSrv := server(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	p := NewWanProber(nil, portalURL, "上网登录页", WithSites(errSrv.URL, closedURL, "://bad"))
	assert.False(t, p.Race(context.Background()))
}

func TestRaceLegTimeout(t *testing.T) {
	release := make(chan struct{})
	hang := server(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	p := NewWanProber(nil, portalURL, "", WithSites(hang.URL), WithTimeouts(100*time.Millisecond, 0))
	started := time.Now()
	assert.False(t, p.Race(context.Background()))
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestLegLogsTimeoutsSeparatelyFromFailures(t *testing.T) {
	release := make(chan struct{})
	hang := server(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	core, logs := observer.New(zap.DebugLevel)
	p := NewWanProber(nil, portalURL, "", WithSites(hang.URL, closedURL),
		WithTimeouts(100*time.Millisecond, 0), WithLogger(zap.New(core)))
	assert.False(t, p.Race(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("wan leg timed out").Len())
	assert.Equal(t, 1, logs.FilterMessage("wan leg failed").Len())
}

func TestRaceRejectsRewrittenPortalPage(t *testing.T) {
	gbkPage, err := simplifiedchinese.GBK.NewEncoder().String("<title>上网登录页</title>")
	require.NoError(t, err)

	cases := []struct {
		name        string
		contentType string
		body        string
	}{
		{"utf-8", "text/html; charset=utf-8", "<title>上网登录页</title>"},
		{"gbk declared", "text/html; charset=gbk", gbkPage},
		{"gbk undeclared", "text/html", gbkPage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rewritten := server(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				_, _ = w.Write([]byte(tc.body))
			})
			p := NewWanProber(nil, portalURL, "上网登录页", WithSites(rewritten.URL))
			assert.False(t, p.Race(context.Background()))
		})
	}
}

func TestRaceRejectsRedirectToPortal(t *testing.T) {
	portal := server(t, okHandler)
	redirector := server(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, portal.URL+"/a79.htm", http.StatusFound)
	})

	// The redirector is addressed as localhost so that only the final hop
	// lands on the portal host.
	site := strings.Replace(redirector.URL, "127.0.0.1", "localhost", 1)
	p := NewWanProber(nil, portal.URL, "上网登录页", WithSites(site))
	assert.False(t, p.Race(context.Background()))

	direct := NewWanProber(nil, portalURL, "上网登录页", WithSites(site))
	assert.True(t, direct.Race(context.Background()))
}

func TestRaceWithoutSites(t *testing.T) {
	p := NewWanProber(nil, portalURL, "", WithSites())
	assert.False(t, p.Race(context.Background()))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "10.0.1.5", hostOf("http://10.0.1.5/"))
	assert.Equal(t, "portal.example.edu", hostOf(" https://portal.example.edu:8443/a "))
	assert.Empty(t, hostOf("::"))
}
