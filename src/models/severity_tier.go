package models

import "math"

// SeverityTier is the display bucket derived from remaining time.
type SeverityTier int

const (
	TierNormal  SeverityTier = iota // More than 15 minutes left
	TierCaution                     // 15 minutes or less
	TierWarning                     // 5 minutes or less
	TierExpired                     // Limit reached
)

const (
	cautionThresholdMinutes = 15
	warningThresholdMinutes = 5
)

// TierForRemaining buckets remaining seconds using whole minutes rounded up,
// so 1 second left still reads as 1 minute in the warning tier.
func TierForRemaining(remainingSeconds float64) SeverityTier {
	if remainingSeconds <= 0 {
		return TierExpired
	}
	minutes := CeilMinutes(remainingSeconds)
	switch {
	case minutes <= warningThresholdMinutes:
		return TierWarning
	case minutes <= cautionThresholdMinutes:
		return TierCaution
	default:
		return TierNormal
	}
}

// CeilMinutes converts seconds to whole minutes, rounding up. Non-positive
// input yields 0.
func CeilMinutes(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds / secondsPerMinute))
}

// String returns human-readable tier name.
func (s SeverityTier) String() string {
	switch s {
	case TierNormal:
		return "Normal"
	case TierCaution:
		return "Caution"
	case TierWarning:
		return "Warning"
	case TierExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Emoji returns the menu-bar glyph for the tier.
func (s SeverityTier) Emoji() string {
	switch s {
	case TierNormal:
		return "🟢"
	case TierCaution:
		return "🟡"
	case TierWarning:
		return "🟠"
	case TierExpired:
		return "🔴"
	default:
		return "⚪️"
	}
}

// Blinks reports whether the renderer should flash the title in this tier.
func (s SeverityTier) Blinks() bool {
	return s == TierWarning || s == TierExpired
}
