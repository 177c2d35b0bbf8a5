package models

import (
	"math"
	"time"

	"screentime-bar/src/lib"
)

// LedgerSchemaVersion is written into every saved ledger.
const LedgerSchemaVersion = 2

const dayKeyLayout = "2006-01-02"

// UsageLedger is the persisted record of today's counted screen time.
// Fields absent from an older file keep the values NewUsageLedger assigns.
type UsageLedger struct {
	Version            int        `json:"version"`
	DayStart           string     `json:"day_start"` // Local calendar day, YYYY-MM-DD
	SecondsUsedToday   float64    `json:"seconds_used_today"`
	LimitReachedToday  bool       `json:"limit_reached_today"`
	LimitReachedAt     *time.Time `json:"limit_reached_at,omitempty"`
	TodayLimitOverride *int       `json:"today_limit_override_seconds,omitempty"`
	PreAlertsFired     []bool     `json:"pre_alerts_fired"`
	PostAlertsFired    []bool     `json:"post_alerts_fired"`
	PopupsShownToday   int        `json:"popups_shown_today"`
	LastPopupFiredAt   *time.Time `json:"last_popup_fired_at,omitempty"`
}

// DayKey returns the calendar-day identifier for t in t's location.
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// NewUsageLedger creates a zeroed ledger for the day containing now.
func NewUsageLedger(now time.Time) *UsageLedger {
	return &UsageLedger{
		Version:  LedgerSchemaVersion,
		DayStart: DayKey(now),
	}
}

// Clone returns a deep copy safe to hand to renderers.
func (l *UsageLedger) Clone() *UsageLedger {
	out := *l
	out.PreAlertsFired = append([]bool(nil), l.PreAlertsFired...)
	out.PostAlertsFired = append([]bool(nil), l.PostAlertsFired...)
	if l.LimitReachedAt != nil {
		at := *l.LimitReachedAt
		out.LimitReachedAt = &at
	}
	if l.TodayLimitOverride != nil {
		override := *l.TodayLimitOverride
		out.TodayLimitOverride = &override
	}
	if l.LastPopupFiredAt != nil {
		at := *l.LastPopupFiredAt
		out.LastPopupFiredAt = &at
	}
	return &out
}

// IsForDay reports whether the ledger accounts for the day containing now.
func (l *UsageLedger) IsForDay(now time.Time) bool {
	return l.DayStart == DayKey(now)
}

// EffectiveLimitSeconds returns today's override if set, else the default.
func (l *UsageLedger) EffectiveLimitSeconds(defaultLimitSeconds float64) float64 {
	if l.TodayLimitOverride != nil {
		return float64(*l.TodayLimitOverride)
	}
	return defaultLimitSeconds
}

// RemainingSeconds returns the effective limit minus usage; negative once over.
func (l *UsageLedger) RemainingSeconds(defaultLimitSeconds float64) float64 {
	return l.EffectiveLimitSeconds(defaultLimitSeconds) - l.SecondsUsedToday
}

// ResetForDay re-zeroes everything for a new calendar day, including the override.
func (l *UsageLedger) ResetForDay(now time.Time) {
	preN, postN := len(l.PreAlertsFired), len(l.PostAlertsFired)
	*l = UsageLedger{
		Version:         LedgerSchemaVersion,
		DayStart:        DayKey(now),
		PreAlertsFired:  make([]bool, preN),
		PostAlertsFired: make([]bool, postN),
	}
}

// ResetUsage zeroes usage, the reached state, firing flags and popup counters
// but keeps the day and any override.
func (l *UsageLedger) ResetUsage() {
	l.SecondsUsedToday = 0
	l.ClearLimitReached()
	l.PreAlertsFired = make([]bool, len(l.PreAlertsFired))
	l.ClearPostFlags()
}

// ClearLimitReached leaves the reached state so a later crossing fires again.
func (l *UsageLedger) ClearLimitReached() {
	l.LimitReachedToday = false
	l.LimitReachedAt = nil
}

// ClearPostFlags resets every post-limit flag and the popup counters.
func (l *UsageLedger) ClearPostFlags() {
	l.PostAlertsFired = make([]bool, len(l.PostAlertsFired))
	l.PopupsShownToday = 0
	l.LastPopupFiredAt = nil
}

// ReconcileFlags resizes firing-flag arrays to the current rule counts.
// A mismatched array is replaced with an all-false one. Reports whether
// anything changed.
func (l *UsageLedger) ReconcileFlags(preCount, postCount int) bool {
	changed := false
	if len(l.PreAlertsFired) != preCount {
		l.PreAlertsFired = make([]bool, preCount)
		changed = true
	}
	if len(l.PostAlertsFired) != postCount {
		l.PostAlertsFired = make([]bool, postCount)
		changed = true
	}
	return changed
}

// Sanitize checks a freshly decoded ledger. Recoverable drift is repaired in
// place; a ledger that cannot be trusted returns a LEDGER_ERROR so the caller
// can start fresh.
func (l *UsageLedger) Sanitize(now time.Time) error {
	day, err := time.ParseInLocation(dayKeyLayout, l.DayStart, now.Location())
	if err != nil {
		return lib.WrapError(err, lib.ErrCodeLedger, "day_start is not a calendar date").
			WithContext("day_start", l.DayStart)
	}
	if day.After(now) {
		return lib.LedgerError("day_start is in the future").
			WithContext("day_start", l.DayStart)
	}

	if math.IsNaN(l.SecondsUsedToday) || math.IsInf(l.SecondsUsedToday, 0) || l.SecondsUsedToday < 0 {
		return lib.LedgerError("seconds_used_today must be a non-negative number").
			WithContext("seconds_used_today", l.SecondsUsedToday)
	}

	if l.TodayLimitOverride != nil {
		if *l.TodayLimitOverride < 60 || *l.TodayLimitOverride > MaxMinutesPerDay*secondsPerMinute {
			l.TodayLimitOverride = nil
		}
	}

	if l.LimitReachedToday && l.LimitReachedAt == nil {
		at := now
		l.LimitReachedAt = &at
	}
	if !l.LimitReachedToday {
		l.LimitReachedAt = nil
	}

	if l.PopupsShownToday < 0 {
		l.PopupsShownToday = 0
	}

	l.Version = LedgerSchemaVersion
	return nil
}
