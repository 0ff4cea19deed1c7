package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"autologin/internal/applog"
	"autologin/internal/config"
	"autologin/internal/logging"
	"autologin/internal/monitor"
	"autologin/internal/notify"
	"autologin/internal/portal"
	"autologin/internal/secret"
	"autologin/internal/service"
	"autologin/internal/storage"
	"autologin/internal/system"
)

// errReported marks failures whose message was already printed.
var errReported = errors.New("reported")

type app struct {
	configPath string
	logLevel   string

	logger   *zap.Logger
	cfg      config.Config
	manager  *config.Manager
	activity *applog.Writer
	store    *storage.ResultStorage
	engine   *service.Engine
}

func main() {
	a := &app{}
	root := a.rootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autologin",
		Short:         "Campus network status checks and portal login",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to configuration file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "diagnostic log level (debug, info, warn, error)")

	root.AddCommand(
		a.statusCmd(),
		a.loginCmd(),
		a.silentCmd(),
		a.serveCmd(),
		a.scheduleCmd(),
		a.encryptCmd(),
		a.autostartCmd(),
	)
	return root
}

func (a *app) setup() error {
	logger, err := logging.New(a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.manager = config.NewManager(a.configPath)
	return nil
}

func (a *app) cipher() (*secret.Cipher, error) {
	key, err := system.MachineKey()
	if err != nil {
		return nil, err
	}
	return secret.NewCipher(key)
}

// buildEngine wires every collaborator. It is called by commands that talk
// to the portal.
func (a *app) buildEngine() (*service.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}

	a.activity = applog.New(a.cfg.Logging.LogFilePath, a.cfg.Logging.EnableLogging)

	store, err := storage.NewResultStorage(filepath.Join(a.cfg.Settings.DataDirectory, "history.json"), storage.DefaultMaxEntries)
	if err != nil {
		return nil, fmt.Errorf("initialise storage: %w", err)
	}
	a.store = store

	deps := service.Deps{
		Notifier:    notify.Desktop{},
		ActivityLog: a.activity,
		History:     store,
		AutoStarter: system.AutoStart{},
		ConfigSaver: a.manager,
		Logger:      a.logger,
	}

	client := monitor.NewHTTPClient()
	deps.Portal = portal.New(a.cfg.Network, client, a.logger.Named("portal"))
	deps.Wan = monitor.NewWanProber(client, a.cfg.Network.LoginIP, a.cfg.Network.NotSignInTitle, monitor.WithLogger(a.logger.Named("wan")))

	if c, err := a.cipher(); err != nil {
		a.logger.Warn("password cipher unavailable", zap.Error(err))
	} else {
		deps.Decrypter = c
	}

	a.engine = service.New(a.cfg, deps)
	return a.engine, nil
}
