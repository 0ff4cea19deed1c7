package models

import "time"

// CampusStatus is the portal-side login state of this host.
type CampusStatus string

const (
	CampusAlreadyLoggedIn CampusStatus = "already_logged_in"
	CampusNotLoggedIn     CampusStatus = "not_logged_in"
	CampusLoginSucceeded  CampusStatus = "login_succeeded"
)

// WanStatus is the wide-area reachability observed by the race probe.
type WanStatus string

const (
	WanConnected    WanStatus = "connected"
	WanDisconnected WanStatus = "disconnected"
	WanCheckSkipped WanStatus = "check_skipped"
)

// WanStatusFrom converts a race result to a WanStatus.
func WanStatusFrom(reachable bool) WanStatus {
	if reachable {
		return WanConnected
	}
	return WanDisconnected
}

// LoginVerdict classifies the text returned by the portal login endpoint.
type LoginVerdict string

const (
	VerdictSuccess   LoginVerdict = "success"
	VerdictRejected  LoginVerdict = "rejected"
	VerdictAmbiguous LoginVerdict = "ambiguous"
)

// LoginOutcome captures one login request and how its response was read.
type LoginOutcome struct {
	Success bool          `json:"success"`
	Verdict LoginVerdict  `json:"verdict"`
	Excerpt string        `json:"excerpt,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}
