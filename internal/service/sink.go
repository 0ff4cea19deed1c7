package service

import (
	"time"

	"go.uber.org/zap"

	"autologin/internal/applog"
	"autologin/internal/events"
	"autologin/internal/message"
	"autologin/internal/models"
	"autologin/internal/notify"
)

// Operation names the caller-facing entry point that produced a result.
type Operation string

const (
	OpStatus Operation = "status"
	OpLogin  Operation = "login"
	OpSilent Operation = "silent_login"
)

// ActivityLog is the user-facing log file.
type ActivityLog interface {
	Write(level applog.Level, message string) error
	Trim(retention time.Duration) error
}

// HistoryStore records every emitted result.
type HistoryStore interface {
	Append(entry models.HistoryEntry) error
}

// Emission is everything the sink needs for one invocation.
type Emission struct {
	Op      Operation
	Event   events.Type
	Result  models.CompositeResult
	Message message.Rendered
	Notify  bool
}

// Sink delivers a finished result: one log line, at most one notification,
// one event and one history entry. Its own failures never reach the caller.
type Sink struct {
	log      ActivityLog
	notifier notify.Notifier
	bus      *events.Bus
	history  HistoryStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewSink wires the outputs. Nil outputs are skipped.
func NewSink(log ActivityLog, notifier notify.Notifier, bus *events.Bus, history HistoryStore, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		log:      log,
		notifier: notifier,
		bus:      bus,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
}

// Emit delivers e.
func (s *Sink) Emit(e Emission) {
	r := e.Result

	if s.log != nil {
		line := e.Message.Log
		if line == "" {
			line = message.Flatten(message.CampusText(r))
		}
		if err := s.log.Write(levelFor(r.State), line); err != nil {
			s.logger.Warn("activity log write failed", zap.String("op", string(e.Op)), zap.Error(err))
		}
	}

	if e.Notify && s.notifier != nil {
		text := e.Message.Notify
		if text == "" {
			text = message.CampusText(r)
		}
		if err := s.notifier.Notify(notify.Title, text); err != nil {
			s.logger.Warn("notification failed", zap.String("op", string(e.Op)), zap.Error(err))
		}
	}

	now := s.now()
	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:    e.Event,
			Time:    now.UTC(),
			Success: r.State.Success(),
			Message: e.Message.GUI,
			Campus:  r.Campus,
			Wan:     r.Wan,
			Elapsed: r.ElapsedSeconds,
			State:   r.State,
		})
	}

	if s.history != nil {
		entry := models.HistoryEntry{
			Timestamp: now.UTC(),
			Event:     string(e.Op),
			Result:    r,
			Message:   e.Message.Log,
		}
		if err := s.history.Append(entry); err != nil {
			s.logger.Warn("history append failed", zap.String("op", string(e.Op)), zap.Error(err))
		}
	}

	s.logger.Info("result emitted",
		zap.String("op", string(e.Op)),
		zap.String("state", string(r.State)),
		zap.String("wan", string(r.Wan)),
		zap.Float64("elapsed_seconds", r.ElapsedSeconds),
	)
}

func levelFor(state models.CompositeState) applog.Level {
	if state.Failure() {
		return applog.LevelError
	}
	return applog.LevelInfo
}
