package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"autologin/internal/events"
)

const (
	eventsWriteTimeout = 5 * time.Second
	eventsBuffer       = 16
)

var eventsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// handleEventsWS streams every engine event as a JSON message. Slow clients
// lose events instead of blocking the publisher.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	queue := make(chan events.Event, eventsBuffer)
	unsubscribe := s.engine.Subscribe(func(e events.Event) {
		select {
		case queue <- e:
		default:
			s.logger.Debug("dropping event for slow websocket client", zap.String("type", string(e.Type)))
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case e := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
