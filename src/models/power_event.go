package models

// PowerEvent is a counting transition reported by the OS integration.
type PowerEvent int

const (
	WillSleep PowerEvent = iota
	DidWake
	SessionResignActive
	SessionBecomeActive
	ScreenLocked
	ScreenUnlocked
)

// String returns the audit event name for the transition.
func (e PowerEvent) String() string {
	switch e {
	case WillSleep:
		return "WillSleep"
	case DidWake:
		return "DidWake"
	case SessionResignActive:
		return "SessionResignActive"
	case SessionBecomeActive:
		return "SessionBecomeActive"
	case ScreenLocked:
		return "ScreenLocked"
	case ScreenUnlocked:
		return "ScreenUnlocked"
	default:
		return "UnknownPowerEvent"
	}
}

// EnablesCounting reports whether time should accrue after this transition.
func (e PowerEvent) EnablesCounting() bool {
	switch e {
	case DidWake, SessionBecomeActive, ScreenUnlocked:
		return true
	default:
		return false
	}
}
