// Package apperr defines the error taxonomy shared by the login engine.
package apperr

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
)

// Kind groups errors by the subsystem that produced them.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindConfig       Kind = "config"
	KindCrypto       Kind = "crypto"
	KindSystem       Kind = "system"
	KindNotification Kind = "notification"
	KindLog          Kind = "log"
)

// Error is a non-network application error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and a short description.
func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// NetKind is the subtype of a network failure.
type NetKind string

const (
	NetDNS     NetKind = "dns"
	NetTimeout NetKind = "timeout"
	NetTLS     NetKind = "tls"
	NetHTTP    NetKind = "http"
	NetOther   NetKind = "other"
)

// NetworkError is a classified transport failure.
type NetworkError struct {
	Kind NetKind
	Op   string
	Err  error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("network %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: network %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError reports an unexpected HTTP status code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d %s", e.Code, http.StatusText(e.Code))
}

// ErrResponseTooLarge is returned when a declared body exceeds the accepted size.
var ErrResponseTooLarge = errors.New("response body too large")

// ClassifyNetwork wraps err into a *NetworkError. Already classified errors
// are returned unchanged.
func ClassifyNetwork(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *NetworkError
	if errors.As(err, &classified) {
		return err
	}
	return &NetworkError{Kind: netKind(err), Op: op, Err: err}
}

func netKind(err error) NetKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return NetTimeout
		}
		return NetDNS
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return NetTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NetTimeout
	}

	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	if errors.As(err, &recordErr) || errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostErr) || errors.As(err, &invalidErr) {
		return NetTLS
	}
	if strings.Contains(strings.ToLower(err.Error()), "tls:") {
		return NetTLS
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return NetHTTP
	}
	return NetOther
}

// NetKindOf returns the classified network kind of err, if any.
func NetKindOf(err error) (NetKind, bool) {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Kind, true
	}
	return "", false
}

// DecryptionError hides cryptographic detail from end users. Error returns
// only the user text; Internal is meant for diagnostic logs.
type DecryptionError struct {
	Internal string
	User     string
}

func (e *DecryptionError) Error() string { return e.User }

// DefaultDecryptionMessage is shown whenever the stored password cannot be used.
const DefaultDecryptionMessage = "密码解密失败，请重新输入密码"

// NewDecryptionError builds a DecryptionError with the default user text.
func NewDecryptionError(internal string) *DecryptionError {
	return &DecryptionError{Internal: internal, User: DefaultDecryptionMessage}
}

// UserMessage produces a short text that is safe to show in a notification.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var decErr *DecryptionError
	if errors.As(err, &decErr) {
		return decErr.User
	}
	if kind, ok := NetKindOf(err); ok {
		switch kind {
		case NetTimeout:
			return "连接超时"
		case NetDNS:
			return "DNS解析失败"
		case NetTLS:
			return "TLS连接错误"
		case NetHTTP:
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return fmt.Sprintf("HTTP错误 %d", statusErr.Code)
			}
			return "HTTP错误"
		default:
			if errors.Is(err, ErrResponseTooLarge) {
				return "响应体过大"
			}
			return "网络连接失败，请检查网线或代理"
		}
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case KindConfig:
			return "配置错误"
		case KindCrypto:
			return "加密错误"
		case KindSystem:
			return "系统错误"
		}
	}
	return "未知错误"
}
