package portal

import (
	"strings"

	"autologin/internal/models"
)

// Rule maps a literal marker in the login response to a verdict.
type Rule struct {
	Pattern string
	Verdict models.LoginVerdict
}

// DefaultRules is evaluated in order; the first matching rule wins. Known
// failure markers come first so that a rejection page which also embeds a
// success-looking fragment is never read as a success. New firmware markers
// are appended.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "Msg=01", Verdict: models.VerdictRejected},
		{Pattern: "ldap auth error", Verdict: models.VerdictRejected},
		{Pattern: "注销页", Verdict: models.VerdictSuccess},
		{Pattern: "认证成功页", Verdict: models.VerdictSuccess},
		{Pattern: "Dr.COMWebLoginID_3.htm", Verdict: models.VerdictSuccess},
		{Pattern: `"result":1`, Verdict: models.VerdictSuccess},
	}
}

// WithSuccessMarker appends an extra success marker unless it is empty or
// already present.
func WithSuccessMarker(rules []Rule, marker string) []Rule {
	if marker == "" {
		return rules
	}
	for _, r := range rules {
		if r.Pattern == marker {
			return rules
		}
	}
	out := make([]Rule, len(rules), len(rules)+1)
	copy(out, rules)
	return append(out, Rule{Pattern: marker, Verdict: models.VerdictSuccess})
}

// Classify applies rules to text. Text matching no rule is ambiguous.
func Classify(rules []Rule, text string) models.LoginVerdict {
	for _, r := range rules {
		if r.Pattern != "" && strings.Contains(text, r.Pattern) {
			return r.Verdict
		}
	}
	return models.VerdictAmbiguous
}

// ClassifyPage reads the portal landing page. Pages matching neither marker
// count as not logged in so that automated callers retry the login.
func ClassifyPage(body, loggedInMarker, notLoggedInMarker string) models.CampusStatus {
	switch {
	case loggedInMarker != "" && strings.Contains(body, loggedInMarker):
		return models.CampusAlreadyLoggedIn
	case notLoggedInMarker != "" && strings.Contains(body, notLoggedInMarker):
		return models.CampusNotLoggedIn
	default:
		return models.CampusNotLoggedIn
	}
}
