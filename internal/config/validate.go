package config

import (
	"errors"
	"fmt"
	"unicode"
)

// PasswordStrength grades a password that passed length validation.
type PasswordStrength int

const (
	PasswordWeak PasswordStrength = iota
	PasswordStrong
)

var (
	ErrUsernameFormat = errors.New("username must be 3-12 digits")
	ErrPasswordLength = errors.New("password must be 8-32 characters")
	ErrNoPlaceholder  = errors.New("at least one message template must contain %1, %2, %3 or %4")
)

// ValidateUsername accepts an empty username or 3-12 ASCII digits.
func ValidateUsername(username string) error {
	if username == "" {
		return nil
	}
	if len(username) < 3 || len(username) > 12 {
		return ErrUsernameFormat
	}
	for _, r := range username {
		if r < '0' || r > '9' {
			return ErrUsernameFormat
		}
	}
	return nil
}

// ValidatePassword checks the length rule and grades the password. The
// portal's strong rule (upper, lower, digit and symbol) is only advisory:
// older accounts still use weak passwords, so a weak grade is not an error.
// An empty password means "keep the stored one" and is reported as weak.
func ValidatePassword(password string) (PasswordStrength, error) {
	if password == "" {
		return PasswordWeak, nil
	}
	n := len([]rune(password))
	if n < 8 || n > 32 {
		return PasswordWeak, ErrPasswordLength
	}

	var digit, upper, lower, symbol bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			symbol = true
		}
	}
	if digit && upper && lower && symbol {
		return PasswordStrong, nil
	}
	return PasswordWeak, nil
}

// ValidateMessages requires at least one template to carry a placeholder;
// otherwise every message would be static text.
func ValidateMessages(m MessageConfig) error {
	for _, p := range []string{placeholderCampus, placeholderWan, placeholderElapsed, placeholderFlowInfo} {
		if m.Uses(p) {
			return nil
		}
	}
	return ErrNoPlaceholder
}

// Validate checks a configuration before it is saved.
func Validate(cfg Config) error {
	if err := ValidateUsername(cfg.Account.Username); err != nil {
		return fmt.Errorf("account.username: %w", err)
	}
	if err := ValidateMessages(cfg.Message); err != nil {
		return fmt.Errorf("message: %w", err)
	}
	if cfg.Network.LoginIP == "" {
		return errors.New("network.login_ip is required")
	}
	return nil
}
