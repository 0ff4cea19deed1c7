// Package service orchestrates status checks and portal logins and hands
// every result to a single sink.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"autologin/internal/apperr"
	"autologin/internal/config"
	"autologin/internal/events"
	"autologin/internal/flow"
	"autologin/internal/message"
	"autologin/internal/models"
	"autologin/internal/notify"
)

// Portal talks to the captive portal.
type Portal interface {
	Probe(ctx context.Context) (models.CampusStatus, error)
	Login(ctx context.Context, username, password, isp string) (models.LoginOutcome, error)
}

// WanProbe reports whether the wider internet is reachable.
type WanProbe interface {
	Race(ctx context.Context) bool
}

// Decrypter recovers the stored password.
type Decrypter interface {
	Decrypt(encoded string) (string, error)
}

// AutoStarter toggles run-at-login registration.
type AutoStarter interface {
	Set(enabled bool) error
}

// ConfigSaver persists configuration changes.
type ConfigSaver interface {
	Save(cfg config.Config) (bool, error)
	SaveNow(cfg config.Config) error
}

// Deps are the engine collaborators. Any of them may be nil; a nil Portal
// turns every portal call into a failed result.
type Deps struct {
	Portal      Portal
	Wan         WanProbe
	Flow        flow.Source
	Decrypter   Decrypter
	Notifier    notify.Notifier
	ActivityLog ActivityLog
	History     HistoryStore
	AutoStarter AutoStarter
	ConfigSaver ConfigSaver
	Bus         *events.Bus
	Logger      *zap.Logger
}

// Status is returned by CheckStatus.
type Status struct {
	Campus  models.CampusStatus    `json:"campus"`
	Wan     models.WanStatus       `json:"wan"`
	Result  models.CompositeResult `json:"result"`
	Message message.Rendered       `json:"message"`
}

// Report is returned by Login and SilentLogin.
type Report struct {
	Success bool                   `json:"success"`
	Outcome models.LoginOutcome    `json:"outcome"`
	Result  models.CompositeResult `json:"result"`
	Message message.Rendered       `json:"message"`
}

var errNoPortal = errors.New("portal client not configured")

// Engine runs one logical flow per call. Calls may overlap; each builds its
// own result.
type Engine struct {
	mu  sync.RWMutex
	cfg config.Config

	portal    Portal
	wan       WanProbe
	flow      flow.Source
	decrypter Decrypter
	autostart AutoStarter
	saver     ConfigSaver
	log       ActivityLog
	bus       *events.Bus
	sink      *Sink
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an engine for cfg.
func New(cfg config.Config, deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := deps.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	return &Engine{
		cfg:       cfg,
		portal:    deps.Portal,
		wan:       deps.Wan,
		flow:      deps.Flow,
		decrypter: deps.Decrypter,
		autostart: deps.AutoStarter,
		saver:     deps.ConfigSaver,
		log:       deps.ActivityLog,
		bus:       bus,
		sink:      NewSink(deps.ActivityLog, deps.Notifier, bus, deps.History, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Config returns the configuration currently in use.
func (e *Engine) Config() config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Subscribe registers an event observer.
func (e *Engine) Subscribe(h events.Handler) (unsubscribe func()) {
	return e.bus.Subscribe(h)
}

// CheckStatus probes the portal and reports the current state. The result is
// always written to the activity log; a notification is shown only when
// showNotification is set. The returned error is the classified probe
// failure, if any; the Status is filled in either way.
func (e *Engine) CheckStatus(ctx context.Context, showNotification bool) (Status, error) {
	cfg := e.Config()
	start := e.now()

	campus, probeErr := e.probe(ctx)
	result := models.CompositeResult{Campus: campus, Wan: models.WanCheckSkipped}
	switch {
	case probeErr != nil:
		result.State = models.StatePortalUnreachable
		result.Detail = apperr.UserMessage(probeErr)
		e.logger.Warn("portal probe failed", zap.Error(probeErr))
	case campus == models.CampusAlreadyLoggedIn:
		result.State = models.StateAlreadyConnected
	default:
		result.State = models.StateNotConnected
	}

	if probeErr != nil || cfg.Message.NeedsWan() {
		result.Wan = e.race(ctx)
	}
	if campus == models.CampusAlreadyLoggedIn {
		result.FlowMB = e.flowFor(ctx, cfg, cfg.Account.Username, "", cfg.Account.ISP)
	}
	result.ElapsedSeconds = e.now().Sub(start).Seconds()

	rendered := message.Compose(result, cfg.Message)
	e.sink.Emit(Emission{
		Op:      OpStatus,
		Event:   events.NetworkStatusChecked,
		Result:  result,
		Message: rendered,
		Notify:  showNotification,
	})
	return Status{Campus: result.Campus, Wan: result.Wan, Result: result, Message: rendered}, probeErr
}

// Login submits the given credentials and reports the outcome with a
// notification.
func (e *Engine) Login(ctx context.Context, username, password, isp string) Report {
	cfg := e.Config()
	report := e.attempt(ctx, cfg, username, password, config.NormalizeISP(isp), e.now())
	return e.emitReport(OpLogin, cfg, report)
}

// SilentLogin is the unattended entry point: it trims the activity log, uses
// the stored credentials and logs in only when the portal does not already
// report this host as logged in. Incomplete configuration and an unusable
// stored password end the run before any network traffic.
func (e *Engine) SilentLogin(ctx context.Context) Report {
	cfg := e.Config()
	start := e.now()

	if e.log != nil && cfg.Logging.EnableLogging {
		if err := e.log.Trim(cfg.Logging.Retention()); err != nil {
			e.logger.Warn("activity log trim failed", zap.Error(err))
		}
	}

	if !config.IsComplete(cfg) {
		report := e.shortCircuit(models.StateConfigIncomplete, start)
		return e.emitReport(OpSilent, cfg, report)
	}

	password, err := e.decrypt(cfg.Account.EncryptedPassword)
	if err != nil {
		var decErr *apperr.DecryptionError
		if errors.As(err, &decErr) {
			e.logger.Warn("stored password unusable", zap.String("reason", decErr.Internal))
		} else {
			e.logger.Warn("stored password unusable", zap.Error(err))
		}
		report := e.shortCircuit(models.StateDecryptFailed, start)
		return e.emitReport(OpSilent, cfg, report)
	}

	campus, probeErr := e.probe(ctx)
	if probeErr != nil {
		e.logger.Warn("portal probe failed, attempting login", zap.Error(probeErr))
	}
	if probeErr == nil && campus == models.CampusAlreadyLoggedIn {
		result := models.CompositeResult{
			State:  models.StateAlreadyConnected,
			Campus: campus,
			Wan:    models.WanCheckSkipped,
		}
		if cfg.Message.NeedsWan() {
			result.Wan = e.race(ctx)
		}
		result.FlowMB = e.flowFor(ctx, cfg, cfg.Account.Username, password, cfg.Account.ISP)
		result.ElapsedSeconds = e.now().Sub(start).Seconds()
		report := Report{
			Success: true,
			Outcome: models.LoginOutcome{Success: true, Verdict: models.VerdictSuccess},
			Result:  result,
		}
		return e.emitReport(OpSilent, cfg, report)
	}

	report := e.attempt(ctx, cfg, cfg.Account.Username, password, cfg.Account.ISP, start)
	return e.emitReport(OpSilent, cfg, report)
}

// SaveConfig validates cfg, stores it and makes it current. A save dropped
// by the debounce window still updates the in-memory configuration.
func (e *Engine) SaveConfig(cfg config.Config) (bool, error) {
	if err := config.Validate(cfg); err != nil {
		return false, apperr.New(apperr.KindConfig, "validate config", err)
	}
	cfg.Account.ISP = config.NormalizeISP(cfg.Account.ISP)

	written := false
	if e.saver != nil {
		var err error
		written, err = e.saver.Save(cfg)
		if err != nil {
			return false, apperr.New(apperr.KindConfig, "save config", err)
		}
	}

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	if written {
		e.bus.Publish(events.Event{Type: events.ConfigSaved, Success: true, Message: "配置已保存"})
	}
	return written, nil
}

// SetAutoStart registers or removes run-at-login and records the choice in
// the configuration.
func (e *Engine) SetAutoStart(enabled bool) error {
	if e.autostart == nil {
		return apperr.New(apperr.KindSystem, "set auto start", errors.New("auto start not supported"))
	}
	if err := e.autostart.Set(enabled); err != nil {
		e.bus.Publish(events.Event{Type: events.AutoStartSet, Success: false, Message: err.Error(), Enabled: &enabled})
		return err
	}

	e.mu.Lock()
	e.cfg.Settings.AutoStart = enabled
	cfg := e.cfg
	e.mu.Unlock()

	if e.saver != nil {
		if err := e.saver.SaveNow(cfg); err != nil {
			e.logger.Warn("persist auto start setting failed", zap.Error(err))
		}
	}

	msg := "已关闭开机自启"
	if enabled {
		msg = "已开启开机自启"
	}
	e.bus.Publish(events.Event{Type: events.AutoStartSet, Success: true, Message: msg, Enabled: &enabled})
	return nil
}

func (e *Engine) attempt(ctx context.Context, cfg config.Config, username, password, isp string, start time.Time) Report {
	var (
		outcome models.LoginOutcome
		err     error
	)
	if e.portal == nil {
		err = errNoPortal
	} else {
		outcome, err = e.portal.Login(ctx, username, password, isp)
	}

	result := models.CompositeResult{Campus: models.CampusNotLoggedIn, Wan: models.WanCheckSkipped}
	switch {
	case err != nil:
		result.State = models.StateLoginRequestFailed
		result.Detail = apperr.UserMessage(err)
		e.logger.Warn("login request failed", zap.String("username", username), zap.Error(err))
	case outcome.Verdict == models.VerdictSuccess:
		result.State = models.StateLoginSucceeded
		result.Campus = models.CampusLoginSucceeded
	case outcome.Verdict == models.VerdictRejected:
		result.State = models.StateLoginRejected
	default:
		result.State = models.StateLoginAmbiguous
		e.logger.Info("unrecognised login response", zap.String("excerpt", outcome.Excerpt))
	}

	if cfg.Message.NeedsWan() {
		result.Wan = e.race(ctx)
	}
	if result.State == models.StateLoginSucceeded {
		result.FlowMB = e.flowFor(ctx, cfg, username, password, isp)
	}
	result.ElapsedSeconds = e.now().Sub(start).Seconds()

	return Report{
		Success: result.State.Success(),
		Outcome: outcome,
		Result:  result,
	}
}

func (e *Engine) shortCircuit(state models.CompositeState, start time.Time) Report {
	return Report{
		Outcome: models.LoginOutcome{Verdict: models.VerdictRejected},
		Result: models.CompositeResult{
			State:          state,
			Campus:         models.CampusNotLoggedIn,
			Wan:            models.WanCheckSkipped,
			ElapsedSeconds: e.now().Sub(start).Seconds(),
		},
	}
}

// emitReport composes the messages, emits the report and returns it with
// the messages filled in.
func (e *Engine) emitReport(op Operation, cfg config.Config, report Report) Report {
	report.Message = message.Compose(report.Result, cfg.Message)
	e.sink.Emit(Emission{
		Op:      op,
		Event:   events.LoginAttempted,
		Result:  report.Result,
		Message: report.Message,
		Notify:  true,
	})
	return report
}

func (e *Engine) probe(ctx context.Context) (models.CampusStatus, error) {
	if e.portal == nil {
		return models.CampusNotLoggedIn, errNoPortal
	}
	return e.portal.Probe(ctx)
}

func (e *Engine) race(ctx context.Context) models.WanStatus {
	if e.wan == nil {
		return models.WanCheckSkipped
	}
	return models.WanStatusFrom(e.wan.Race(ctx))
}

func (e *Engine) decrypt(encoded string) (string, error) {
	if e.decrypter == nil {
		return "", apperr.NewDecryptionError("no decrypter configured")
	}
	return e.decrypter.Decrypt(encoded)
}

// flowFor fetches the remaining quota when the account is billed by the
// campus network and a template shows it. An empty password means the
// stored one. Failures leave the quota unset.
func (e *Engine) flowFor(ctx context.Context, cfg config.Config, username, password, isp string) *float64 {
	if e.flow == nil || isp != "" || !cfg.Message.NeedsFlow() {
		return nil
	}
	if password == "" {
		if !config.IsComplete(cfg) {
			return nil
		}
		var err error
		password, err = e.decrypt(cfg.Account.EncryptedPassword)
		if err != nil {
			e.logger.Debug("skip flow lookup", zap.Error(err))
			return nil
		}
	}
	mb, err := e.flow.RemainingMB(ctx, username, password)
	if err != nil {
		e.logger.Warn("flow lookup failed", zap.Error(fmt.Errorf("remaining quota: %w", err)))
		return nil
	}
	return &mb
}
