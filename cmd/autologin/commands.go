package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"autologin/internal/apperr"
	"autologin/internal/config"
	"autologin/internal/scheduler"
	"autologin/internal/server"
	"autologin/internal/service"
)

func (a *app) statusCmd() *cobra.Command {
	var showNotification bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check campus portal and internet connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.buildEngine()
			if err != nil {
				return err
			}
			status, _ := engine.CheckStatus(cmd.Context(), showNotification)
			fmt.Fprintln(cmd.OutOrStdout(), status.Message.GUI)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showNotification, "notify", false, "show a desktop notification")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var username, password, isp string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the campus portal",
		Long:  "Log in with the given credentials. Without --username the stored account is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.buildEngine()
			if err != nil {
				return err
			}
			var report service.Report
			if username == "" {
				report = engine.SilentLogin(cmd.Context())
			} else {
				if err := config.ValidateUsername(username); err != nil {
					return err
				}
				report = engine.Login(cmd.Context(), username, password, isp)
			}
			return printReport(cmd, report)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account name")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&isp, "isp", "", "carrier suffix, empty for campus billing")
	return cmd
}

func (a *app) silentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "silent",
		Short: "Log in with the stored account unless already logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.buildEngine()
			if err != nil {
				return err
			}
			return printReport(cmd, engine.SilentLogin(cmd.Context()))
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	var (
		addr     string
		schedule bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.buildEngine()
			if err != nil {
				return err
			}

			if schedule {
				sched, err := a.newScheduler(engine)
				if err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
			}

			srv := server.New(addr, engine, a.store, a.activity, a.logger.Named("server"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Warn("server shutdown", zap.Error(err))
				}
			}()

			a.logger.Info("listening", zap.String("addr", addr), zap.Bool("schedule", schedule))
			if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "address for the HTTP API")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "also run the silent login on settings.schedule")
	return cmd
}

func (a *app) scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the silent login on settings.schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.buildEngine()
			if err != nil {
				return err
			}
			sched, err := a.newScheduler(engine)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sched.Start()
			fmt.Fprintf(cmd.OutOrStdout(), "schedule %q, next run %s\n", a.cfg.Settings.Schedule, sched.Next())
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
}

func (a *app) newScheduler(engine *service.Engine) (*scheduler.Scheduler, error) {
	return scheduler.New(a.cfg.Settings.Schedule, func(ctx context.Context) {
		report := engine.SilentLogin(ctx)
		a.logger.Info("scheduled login finished",
			zap.String("state", string(report.Result.State)),
			zap.Bool("success", report.Success),
		)
	}, a.logger.Named("scheduler"))
}

func (a *app) encryptCmd() *cobra.Command {
	var (
		password string
		save     bool
	)
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a password for this machine",
		Long:  "Encrypt a password with a key bound to this machine. Reads the password from stdin when --password is not given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			strength, err := config.ValidatePassword(password)
			if err != nil {
				return err
			}
			if strength == config.PasswordWeak {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: weak password")
			}

			c, err := a.cipher()
			if err != nil {
				return err
			}
			encrypted, err := c.Encrypt(password)
			if err != nil {
				return err
			}
			if !save {
				fmt.Fprintln(cmd.OutOrStdout(), encrypted)
				return nil
			}

			cfg := a.cfg
			cfg.Account.EncryptedPassword = encrypted
			if err := a.manager.SaveNow(cfg); err != nil {
				return apperr.New(apperr.KindConfig, "save config", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved to %s\n", a.manager.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to encrypt")
	cmd.Flags().BoolVar(&save, "save", false, "store the result in the configuration file")
	return cmd
}

func (a *app) autostartCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "autostart on|off",
		Short:     "Register or remove the silent login at user login",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.buildEngine()
			if err != nil {
				return err
			}
			enabled := args[0] == "on"
			if err := engine.SetAutoStart(enabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "autostart %s\n", args[0])
			return nil
		},
	}
}

func printReport(cmd *cobra.Command, report service.Report) error {
	fmt.Fprintln(cmd.OutOrStdout(), report.Message.GUI)
	if !report.Success {
		return errReported
	}
	return nil
}
