package models

import "time"

// CompositeState is the closed set of outcomes a single invocation can end in.
type CompositeState string

const (
	StateAlreadyConnected   CompositeState = "already_connected"
	StateNotConnected       CompositeState = "not_connected"
	StatePortalUnreachable  CompositeState = "portal_unreachable"
	StateLoginSucceeded     CompositeState = "login_succeeded"
	StateLoginRejected      CompositeState = "login_rejected"
	StateLoginAmbiguous     CompositeState = "login_ambiguous"
	StateLoginRequestFailed CompositeState = "login_request_failed"
	StateConfigIncomplete   CompositeState = "config_incomplete"
	StateDecryptFailed      CompositeState = "decrypt_failed"
)

// Success reports whether the state means the host is usable on the campus network.
func (s CompositeState) Success() bool {
	return s == StateAlreadyConnected || s == StateLoginSucceeded
}

// Failure reports whether the state should be recorded as a failed operation.
func (s CompositeState) Failure() bool {
	switch s {
	case StateAlreadyConnected, StateNotConnected, StateLoginSucceeded:
		return false
	default:
		return true
	}
}

// CompositeResult is the only input to message templating. It is never
// modified after the engine builds it.
type CompositeResult struct {
	State          CompositeState `json:"state"`
	Campus         CampusStatus   `json:"campus"`
	Wan            WanStatus      `json:"wan"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
	FlowMB         *float64       `json:"flow_mb,omitempty"`
	Detail         string         `json:"detail,omitempty"`
}

// HistoryEntry stores one emitted result.
type HistoryEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Event     string          `json:"event"`
	Result    CompositeResult `json:"result"`
	Message   string          `json:"message"`
}
