package models

import "time"

// AlertKind identifies which rule family produced an alert.
type AlertKind int

const (
	AlertPreLimit     AlertKind = iota // Warning before the limit
	AlertLimitReached                  // The limit was just crossed
	AlertPostLimit                     // Escalation after the limit
)

// String returns the alert kind name.
func (k AlertKind) String() string {
	switch k {
	case AlertPreLimit:
		return "pre-limit"
	case AlertLimitReached:
		return "limit-reached"
	case AlertPostLimit:
		return "post-limit"
	default:
		return "unknown"
	}
}

// AlertIntent tells the rendering layer an alert is due. The engine has
// already marked the rule consumed; delivery is best effort.
type AlertIntent struct {
	Kind      AlertKind
	RuleIndex int // Position in the rule list; 0 for the limit-reached rule
	Message   string
	Voice     string
	Sound     string
	Popup     bool // Post-limit alerts are shown as modal popups
	FiredAt   time.Time
}
