package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autologin/internal/apperr"
	"autologin/internal/events"
	"autologin/internal/metrics"
	"autologin/internal/models"
	"autologin/internal/service"
)

type fakeEngine struct {
	bus        *events.Bus
	probeErr   error
	silent     int
	subscribed chan struct{}
}

func (f *fakeEngine) CheckStatus(context.Context, bool) (service.Status, error) {
	return service.Status{
		Campus: models.CampusAlreadyLoggedIn,
		Wan:    models.WanConnected,
		Result: models.CompositeResult{State: models.StateAlreadyConnected},
	}, f.probeErr
}

func (f *fakeEngine) SilentLogin(context.Context) service.Report {
	f.silent++
	report := service.Report{Success: true, Result: models.CompositeResult{State: models.StateLoginSucceeded}}
	f.bus.Publish(events.Event{Type: events.LoginAttempted, Success: true, State: report.Result.State})
	return report
}

func (f *fakeEngine) Subscribe(h events.Handler) func() {
	unsubscribe := f.bus.Subscribe(h)
	if f.subscribed != nil {
		close(f.subscribed)
	}
	return unsubscribe
}

type fakeHistory struct{ entries []models.HistoryEntry }

func (h fakeHistory) Latest() (models.HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return models.HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

func (h fakeHistory) HistoryN(n int) []models.HistoryEntry {
	if n > 0 && len(h.entries) > n {
		return h.entries[len(h.entries)-n:]
	}
	return h.entries
}

type fakeLog struct {
	text string
	err  error
}

func (l fakeLog) Read() (string, error) { return l.text, l.err }

func newTestServer(t *testing.T, engine *fakeEngine, history HistoryReader, logs LogReader) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New("", engine, history, logs, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func sampleHistory(now time.Time) fakeHistory {
	return fakeHistory{entries: []models.HistoryEntry{
		{Timestamp: now.Add(-3 * time.Hour), Event: "silent_login", Result: models.CompositeResult{State: models.StateLoginRejected}, Message: "登录失败"},
		{Timestamp: now.Add(-2 * time.Hour), Event: "silent_login", Result: models.CompositeResult{State: models.StateLoginSucceeded}},
		{Timestamp: now.Add(-time.Hour), Event: "status", Result: models.CompositeResult{State: models.StateAlreadyConnected}},
	}}
}

func TestStatusEndpoint(t *testing.T) {
	engine := &fakeEngine{bus: events.NewBus(), probeErr: &apperr.NetworkError{Kind: apperr.NetDNS, Op: "probe", Err: errors.New("no such host")}}
	srv := newTestServer(t, engine, nil, nil)

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "already_logged_in", body["campus"])
	assert.Equal(t, "connected", body["wan"])
	assert.Equal(t, "DNS解析失败", body["error"])
}

func TestLoginRequiresPost(t *testing.T) {
	engine := &fakeEngine{bus: events.NewBus()}
	srv := newTestServer(t, engine, nil, nil)

	resp, err := http.Get(srv.URL + "/api/login")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Zero(t, engine.silent)

	resp, err = http.Post(srv.URL+"/api/login", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	var report service.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.True(t, report.Success)
	assert.Equal(t, 1, engine.silent)
}

func TestHistoryAndSummary(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{bus: events.NewBus()}, sampleHistory(time.Now().UTC()), nil)

	resp, err := http.Get(srv.URL + "/api/history?limit=2")
	require.NoError(t, err)
	var history []models.HistoryEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	require.Len(t, history, 2)
	assert.Equal(t, models.StateLoginSucceeded, history[0].Result.State)

	resp, err = http.Get(srv.URL + "/api/summary")
	require.NoError(t, err)
	var summary []metrics.OperationSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()
	require.Len(t, summary, 2)
	assert.Equal(t, "silent_login", summary[0].Event)
	assert.Equal(t, 50.0, summary[0].SuccessRate)
}

func TestLogsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{bus: events.NewBus()}, nil, fakeLog{text: "[2025-01-01 00:00:00][INFO] 已登录校园网\n"})
	resp, err := http.Get(srv.URL + "/api/logs")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["log"], "已登录校园网")

	failing := newTestServer(t, &fakeEngine{bus: events.NewBus()}, nil, fakeLog{err: errors.New("denied")})
	resp2, err := http.Get(failing.URL + "/api/logs")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp2.StatusCode)
}

func TestOverviewBuckets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New("", &fakeEngine{bus: events.NewBus()}, sampleHistory(now), nil, nil)

	snap := s.buildOverviewSnapshot(now)
	require.Len(t, snap.Buckets, overviewBucketCount)
	assert.Equal(t, 3600, snap.BucketSeconds)

	states := make([]string, 0, 3)
	for _, b := range snap.Buckets[overviewBucketCount-3:] {
		states = append(states, b.State)
	}
	assert.Equal(t, []string{overviewStateIssue, overviewStateOK, overviewStateOK}, states)
	assert.Equal(t, "登录失败", snap.Buckets[overviewBucketCount-3].Detail)
	assert.Equal(t, overviewStateUnknown, snap.Buckets[0].State)
}

func TestEventsWebsocket(t *testing.T) {
	engine := &fakeEngine{bus: events.NewBus(), subscribed: make(chan struct{})}
	srv := newTestServer(t, engine, nil, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-engine.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("websocket handler never subscribed")
	}
	engine.bus.Publish(events.Event{Type: events.NetworkStatusChecked, Message: "已登录校园网"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.NetworkStatusChecked, got.Type)
	assert.Equal(t, "已登录校园网", got.Message)
}

func TestEventsWebsocketRejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{bus: events.NewBus()}, nil, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
