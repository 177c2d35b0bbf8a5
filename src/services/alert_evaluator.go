package services

import (
	"time"

	"screentime-bar/src/models"
)

// Alert sequencing. All functions here run with the engine mutex held and
// fire at most one rule per family per tick.

// checkLimitCrossingLocked flips the ledger into the reached state the first
// time remaining time hits zero in a day-cycle.
func (e *AccountingEngine) checkLimitCrossingLocked(now time.Time) *models.AlertIntent {
	if e.ledger.LimitReachedToday || e.remainingLocked() > 0 {
		return nil
	}

	at := now
	e.ledger.LimitReachedToday = true
	e.ledger.LimitReachedAt = &at
	e.ledger.ClearPostFlags()
	e.recordLocked(EventLimitReached, now)
	e.logger.Info("Daily limit reached", map[string]interface{}{
		"secondsUsed":  e.ledger.SecondsUsedToday,
		"limitSeconds": e.ledger.EffectiveLimitSeconds(e.config.DailyLimitSeconds()),
	})

	rule := e.policy.LimitReached
	if rule == nil || !rule.Enabled {
		return nil
	}
	return &models.AlertIntent{
		Kind:    models.AlertLimitReached,
		Message: models.RenderMessage(rule.Message, 0),
		Voice:   rule.Voice,
		Popup:   true,
		FiredAt: now,
	}
}

// evaluatePreLimitLocked walks pre-limit rules from the smallest threshold
// upward. The first enabled rule whose threshold has been crossed is the only
// candidate this tick: it fires if unfired, and larger thresholds that were
// skipped past stay unfired for good.
func (e *AccountingEngine) evaluatePreLimitLocked(now time.Time) *models.AlertIntent {
	remaining := e.remainingLocked()
	if remaining <= 0 {
		return nil
	}

	rules := e.policy.PreLimit
	for i := len(rules) - 1; i >= 0; i-- {
		rule := rules[i]
		if !rule.Enabled {
			continue
		}
		if remaining > float64(rule.MinutesBeforeLimit*60) {
			continue
		}
		if e.ledger.PreAlertsFired[i] {
			return nil
		}

		e.ledger.PreAlertsFired[i] = true
		e.recordLocked(SpokenPreAlertEvent(i+1), now)
		e.logger.Info("Pre-limit alert fired", map[string]interface{}{
			"rule":               i + 1,
			"minutesBeforeLimit": rule.MinutesBeforeLimit,
			"remainingSeconds":   remaining,
		})
		return &models.AlertIntent{
			Kind:      models.AlertPreLimit,
			RuleIndex: i,
			Message:   models.RenderMessage(rule.Message, models.CeilMinutes(remaining)),
			Voice:     rule.Voice,
			FiredAt:   now,
		}
	}
	return nil
}

// evaluatePostLimitLocked fires the first eligible unfired post-limit rule,
// measured from LimitReachedAt, until MaxAnnoyancePopups have been shown.
func (e *AccountingEngine) evaluatePostLimitLocked(now time.Time) *models.AlertIntent {
	if e.remainingLocked() > 0 || !e.ledger.LimitReachedToday || e.ledger.LimitReachedAt == nil {
		return nil
	}

	maxPopups := e.config.MaxAnnoyancePopups
	if e.ledger.PopupsShownToday >= maxPopups {
		return nil
	}

	elapsed := now.Sub(*e.ledger.LimitReachedAt)
	for i, rule := range e.policy.PostLimit {
		if !rule.Enabled || e.ledger.PostAlertsFired[i] {
			continue
		}
		if elapsed < time.Duration(rule.MinutesAfterLimit)*time.Minute {
			// Ascending order: nothing later is eligible either.
			return nil
		}

		at := now
		e.ledger.PostAlertsFired[i] = true
		e.ledger.PopupsShownToday++
		e.ledger.LastPopupFiredAt = &at
		e.recordLocked(AnnoyancePopupEvent(e.ledger.PopupsShownToday, maxPopups), now)
		if rule.Voice != "" {
			e.recordLocked(EventSpokenPostAlert, now)
		}
		e.logger.Info("Post-limit alert fired", map[string]interface{}{
			"rule":              i + 1,
			"minutesAfterLimit": rule.MinutesAfterLimit,
			"popupsShownToday":  e.ledger.PopupsShownToday,
			"maxPopups":         maxPopups,
		})
		return &models.AlertIntent{
			Kind:      models.AlertPostLimit,
			RuleIndex: i,
			Message:   models.RenderMessage(rule.Message, int(elapsed/time.Minute)),
			Voice:     rule.Voice,
			Sound:     rule.Sound,
			Popup:     true,
			FiredAt:   now,
		}
	}
	return nil
}
