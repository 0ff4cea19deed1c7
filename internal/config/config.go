package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// CampusISPLabel is the display name of the campus network's own billing.
	CampusISPLabel = "校园网"

	defaultLoginIP      = "http://10.0.1.5/"
	defaultLogFilePath  = "./AutoLogin.log"
	defaultRetention    = 7
	defaultSchedule     = "@every 30m"
	defaultDataDir      = ".autologin"
	placeholderCampus   = "%1"
	placeholderWan      = "%2"
	placeholderElapsed  = "%3"
	placeholderFlowInfo = "%4"
)

// Config represents configuration data for the login engine.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Network  NetworkConfig  `yaml:"network"`
	Logging  LoggingConfig  `yaml:"logging"`
	Settings SettingsConfig `yaml:"settings"`
	Message  MessageConfig  `yaml:"message"`
}

// AccountConfig holds the portal credentials.
type AccountConfig struct {
	Username          string `yaml:"username"`
	EncryptedPassword string `yaml:"encrypted_password"`
	// ISP is the carrier suffix; empty means campus network billing.
	ISP string `yaml:"isp"`
}

// NetworkConfig describes the captive portal.
type NetworkConfig struct {
	LoginIP        string `yaml:"login_ip"`
	ResultReturn   string `yaml:"result_return"`
	SignedInTitle  string `yaml:"signed_in_title"`
	NotSignInTitle string `yaml:"not_sign_in_title"`
}

// LoggingConfig controls the activity log file.
type LoggingConfig struct {
	EnableLogging        bool   `yaml:"enable_logging"`
	LogFilePath          string `yaml:"log_file_path"`
	InfoLogRetentionDays int    `yaml:"info_log_retention_days"`
}

// Retention returns how long INFO lines are kept in the activity log.
func (l LoggingConfig) Retention() time.Duration {
	return time.Duration(l.InfoLogRetentionDays) * 24 * time.Hour
}

// SettingsConfig holds host integration settings.
type SettingsConfig struct {
	AutoStart     bool   `yaml:"auto_start"`
	Schedule      string `yaml:"schedule"`
	DataDirectory string `yaml:"data_directory"`
}

// MessageConfig holds the three message templates. Each may reference
// %1 (campus), %2 (wan), %3 (elapsed) and %4 (flow quota).
type MessageConfig struct {
	NotifyText string `yaml:"notify_text"`
	GUIText    string `yaml:"gui_text"`
	LogText    string `yaml:"log_text"`
}

// CampusMessages are the default templates for campus billing accounts.
func CampusMessages() MessageConfig {
	return MessageConfig{
		NotifyText: "%1 %2\n%3 %4",
		GUIText:    "%1 %2",
		LogText:    "%1 %2 %3 %4",
	}
}

// CarrierMessages are the default templates for accounts billed by a carrier,
// where the flow quota placeholder is meaningless.
func CarrierMessages() MessageConfig {
	return MessageConfig{
		NotifyText: "%1 %2 %3",
		GUIText:    "%1 %2",
		LogText:    "%1 %2 %3",
	}
}

// Uses reports whether any template references the placeholder.
func (m MessageConfig) Uses(placeholder string) bool {
	return strings.Contains(m.NotifyText, placeholder) ||
		strings.Contains(m.GUIText, placeholder) ||
		strings.Contains(m.LogText, placeholder)
}

// NeedsWan reports whether any template displays the WAN status.
func (m MessageConfig) NeedsWan() bool { return m.Uses(placeholderWan) }

// NeedsFlow reports whether any template displays the flow quota.
func (m MessageConfig) NeedsFlow() bool { return m.Uses(placeholderFlowInfo) }

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		Network: NetworkConfig{
			LoginIP:        defaultLoginIP,
			ResultReturn:   `"result":1`,
			SignedInTitle:  "注销页",
			NotSignInTitle: "上网登录页",
		},
		Logging: LoggingConfig{
			EnableLogging:        true,
			LogFilePath:          defaultLogFilePath,
			InfoLogRetentionDays: defaultRetention,
		},
		Settings: SettingsConfig{
			Schedule:      defaultSchedule,
			DataDirectory: defaultDataDir,
		},
		Message: CampusMessages(),
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(content)
}

// Parse decodes YAML content on top of the defaults.
func Parse(content []byte) (Config, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Account.ISP = NormalizeISP(cfg.Account.ISP)
	if _, ok := raw["message"]; !ok {
		if cfg.Account.ISP == "" {
			cfg.Message = CampusMessages()
		} else {
			cfg.Message = CarrierMessages()
		}
	} else {
		cfg.Message.NotifyText = unescapeNewlines(cfg.Message.NotifyText)
		cfg.Message.GUIText = unescapeNewlines(cfg.Message.GUIText)
		cfg.Message.LogText = unescapeNewlines(cfg.Message.LogText)
	}

	if strings.TrimSpace(cfg.Network.LoginIP) == "" {
		return Config{}, errors.New("network.login_ip is required")
	}
	if cfg.Network.SignedInTitle == "" || cfg.Network.NotSignInTitle == "" {
		return Config{}, errors.New("network page markers must not be empty")
	}
	if cfg.Logging.LogFilePath == "" {
		cfg.Logging.LogFilePath = defaultLogFilePath
	}
	if cfg.Logging.InfoLogRetentionDays <= 0 {
		cfg.Logging.InfoLogRetentionDays = defaultRetention
	}
	if cfg.Settings.Schedule == "" {
		cfg.Settings.Schedule = defaultSchedule
	}
	if cfg.Settings.DataDirectory == "" {
		cfg.Settings.DataDirectory = defaultDataDir
	}
	return cfg, nil
}

// Save writes the configuration through a temporary file and rename.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure config directory: %w", err)
		}
	}

	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

// IsComplete reports whether the account section allows a silent login.
func IsComplete(cfg Config) bool {
	return cfg.Account.Username != "" && cfg.Account.EncryptedPassword != ""
}

// NormalizeISP maps the campus display label to the empty suffix.
func NormalizeISP(isp string) string {
	isp = strings.TrimSpace(isp)
	if isp == CampusISPLabel {
		return ""
	}
	return isp
}

// DisplayISP is the inverse of NormalizeISP.
func DisplayISP(isp string) string {
	if isp == "" {
		return CampusISPLabel
	}
	return isp
}

func unescapeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
