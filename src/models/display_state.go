package models

// DisplayState is the immutable summary handed to the rendering layer.
type DisplayState struct {
	RemainingSeconds int          `json:"remaining_seconds"` // Rounded up, never negative
	RemainingMinutes int          `json:"remaining_minutes"` // Rounded up, never negative
	UsedSeconds      int          `json:"used_seconds"`
	LimitSeconds     int          `json:"limit_seconds"`
	OverrideActive   bool         `json:"override_active"`
	Tier             SeverityTier `json:"tier"`
	BlinkPhase       bool         `json:"blink_phase"`
	CountingEnabled  bool         `json:"counting_enabled"`
	LimitReached     bool         `json:"limit_reached"`
	Day              string       `json:"day"`
}
