package services

import (
	"crypto/subtle"
	"math"
	"sync"
	"time"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
)

// maxCountableDelta bounds the wall-clock gap credited in a single tick.
// Larger gaps (sleep, clock changes, a stalled process) count nothing.
const maxCountableDelta = 10 * time.Second

// PolicySaver persists an accepted alert policy.
type PolicySaver interface {
	Save(policy *models.AlertPolicy) error
}

// EngineOptions wires an AccountingEngine to its collaborators.
type EngineOptions struct {
	Config      *models.Config
	LedgerStore LedgerStore
	PolicyStore PolicySaver        // optional; policy edits are not persisted when nil
	Policy      *models.AlertPolicy // initial policy; defaults when nil
	Audit       AuditLog           // optional; audit lines are dropped when nil
	Clock       lib.Clock
	PIN         string // defaults to models.AdminPIN
}

// TickResult is what one tick hands to the presentation layer.
type TickResult struct {
	Display models.DisplayState
	Alerts  []models.AlertIntent
}

// AccountingEngine owns the usage ledger and alert policy. Ticks, power
// events and admin commands are serialized by one mutex.
type AccountingEngine struct {
	config      *models.Config
	ledger      *models.UsageLedger
	policy      *models.AlertPolicy
	store       LedgerStore
	policyStore PolicySaver
	audit       AuditLog
	clock       lib.Clock
	logger      *lib.Logger
	pin         string

	countingEnabled bool
	lastTick        time.Time
	blinkOn         bool

	ticker       *time.Ticker
	tickStopChan chan struct{}
	tickDoneChan chan struct{}
	tickCallback func(TickResult)

	mutex sync.Mutex
}

// NewAccountingEngine loads the persisted ledger, reconciles it with the
// policy and starts with counting enabled.
func NewAccountingEngine(opts EngineOptions) *AccountingEngine {
	e := &AccountingEngine{
		config:          opts.Config,
		store:           opts.LedgerStore,
		policyStore:     opts.PolicyStore,
		audit:           opts.Audit,
		clock:           opts.Clock,
		logger:          lib.NewLogger("engine"),
		pin:             opts.PIN,
		countingEnabled: true,
	}
	if e.config == nil {
		e.config = models.ConfigDefaults()
	}
	if e.clock == nil {
		e.clock = lib.RealClock{}
	}
	if e.pin == "" {
		e.pin = models.AdminPIN
	}

	if opts.Policy != nil {
		e.policy = opts.Policy.Clone()
	} else {
		e.policy = models.DefaultAlertPolicy()
	}
	e.policy.Normalize()

	now := e.clock.Now()
	if e.store != nil {
		e.ledger = LoadLedgerOrDefault(e.store, now, e.logger)
	} else {
		e.ledger = models.NewUsageLedger(now)
	}
	if e.ledger.ReconcileFlags(len(e.policy.PreLimit), len(e.policy.PostLimit)) {
		e.logger.Debug("Firing flags resized to match alert policy", map[string]interface{}{
			"preRules":  len(e.policy.PreLimit),
			"postRules": len(e.policy.PostLimit),
		})
	}
	e.lastTick = now

	return e
}

// OnTick advances accounting to now and returns the display state plus any
// alerts that became due. At most one alert per family fires per tick.
func (e *AccountingEngine) OnTick(now time.Time) TickResult {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.rolloverIfNeededLocked(now)
	e.ledger.ReconcileFlags(len(e.policy.PreLimit), len(e.policy.PostLimit))

	dt := now.Sub(e.lastTick)
	if e.countingEnabled && dt > 0 && dt < maxCountableDelta {
		e.ledger.SecondsUsedToday += dt.Seconds()
	} else if dt >= maxCountableDelta || dt < 0 {
		e.logger.Debug("Ignoring tick gap", map[string]interface{}{
			"gapSeconds": dt.Seconds(),
			"counting":   e.countingEnabled,
		})
	}
	e.lastTick = now

	var alerts []models.AlertIntent
	if intent := e.checkLimitCrossingLocked(now); intent != nil {
		alerts = append(alerts, *intent)
	}
	if intent := e.evaluatePreLimitLocked(now); intent != nil {
		alerts = append(alerts, *intent)
	}
	if intent := e.evaluatePostLimitLocked(now); intent != nil {
		alerts = append(alerts, *intent)
	}

	e.persistLocked()
	e.blinkOn = !e.blinkOn

	return TickResult{
		Display: e.displayStateLocked(e.ledger, now),
		Alerts:  alerts,
	}
}

// HandlePowerEvent toggles counting. Events that resume counting also reset
// the tick baseline so the suspended interval is never credited.
func (e *AccountingEngine) HandlePowerEvent(event models.PowerEvent, now time.Time) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.countingEnabled = event.EnablesCounting()
	if e.countingEnabled {
		e.lastTick = now
	}
	e.recordLocked(event.String(), now)
	e.logger.Info("Power event", map[string]interface{}{
		"event":    event.String(),
		"counting": e.countingEnabled,
	})
}

// ResetToday zeroes today's usage and alert state after checking the PIN.
// Any limit override for today is kept.
func (e *AccountingEngine) ResetToday(pin string, now time.Time) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.pinMatches(pin) {
		e.recordLocked(EventManualResetBadPIN, now)
		return lib.AuthError("incorrect PIN")
	}

	e.rolloverIfNeededLocked(now)
	e.ledger.ResetUsage()
	e.lastTick = now
	e.persistLocked()
	e.recordLocked(EventManualResetOK, now)
	e.logger.Info("Usage reset for today", map[string]interface{}{
		"day": e.ledger.DayStart,
	})
	return nil
}

// SetTodayLimitOverride replaces today's limit. Raising the limit above
// current usage leaves the reached state so the next crossing fires again.
func (e *AccountingEngine) SetTodayLimitOverride(pin string, minutes int, now time.Time) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.pinMatches(pin) {
		e.recordLocked(EventEditLimitBadPIN, now)
		return lib.AuthError("incorrect PIN")
	}
	if minutes < 1 || minutes > models.MaxMinutesPerDay {
		return lib.ValidationError("limit must be between 1 and 1440 minutes").
			WithContext("minutes", minutes)
	}

	e.rolloverIfNeededLocked(now)
	seconds := minutes * 60
	e.ledger.TodayLimitOverride = &seconds
	if e.ledger.LimitReachedToday && e.remainingLocked() > 0 {
		e.ledger.ClearLimitReached()
	}
	e.persistLocked()
	e.recordLocked(LimitChangedToEvent(minutes), now)
	e.logger.Info("Daily limit overridden", map[string]interface{}{
		"minutes": minutes,
		"day":     e.ledger.DayStart,
	})
	return nil
}

// UpdateAlertPolicy swaps in a validated rule set and resets firing flags to
// the new rule counts.
func (e *AccountingEngine) UpdateAlertPolicy(pin string, policy *models.AlertPolicy, now time.Time) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.pinMatches(pin) {
		e.recordLocked(EventEditAlertsBadPIN, now)
		return lib.AuthError("incorrect PIN")
	}
	if policy == nil {
		return lib.ValidationError("alert policy is required")
	}

	candidate := policy.Clone()
	if err := candidate.Validate(); err != nil {
		return err
	}

	// The running policy must never differ from the stored one.
	if e.policyStore != nil {
		if err := e.policyStore.Save(candidate); err != nil {
			return lib.PersistenceError(err, "failed to save alert policy")
		}
	}

	e.rolloverIfNeededLocked(now)
	e.policy = candidate
	e.ledger.PreAlertsFired = make([]bool, len(candidate.PreLimit))
	e.ledger.PostAlertsFired = make([]bool, len(candidate.PostLimit))
	e.persistLocked()

	e.recordLocked(EditAlertsOKEvent(candidate.Summary()), now)
	e.logger.Info("Alert policy updated", map[string]interface{}{
		"summary": candidate.Summary(),
	})
	return nil
}

// QueryDisplayState is a read-only view. A ledger from a previous day is
// shown as the fresh day it is about to become.
func (e *AccountingEngine) QueryDisplayState(now time.Time) models.DisplayState {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	ledger := e.ledger
	if !ledger.IsForDay(now) {
		ledger = ledger.Clone()
		ledger.ResetForDay(now)
	}
	return e.displayStateLocked(ledger, now)
}

// Policy returns a copy of the active alert policy.
func (e *AccountingEngine) Policy() *models.AlertPolicy {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.policy.Clone()
}

// Ledger returns a copy of the current ledger.
func (e *AccountingEngine) Ledger() *models.UsageLedger {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.ledger.Clone()
}

// CountingEnabled reports whether ticks currently accrue usage.
func (e *AccountingEngine) CountingEnabled() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.countingEnabled
}

// StartTicking drives OnTick from the engine clock at the given interval and
// hands each result to callback.
func (e *AccountingEngine) StartTicking(interval time.Duration, callback func(TickResult)) error {
	if interval <= 0 {
		return lib.ValidationError("tick interval must be positive")
	}

	e.StopTicking()

	e.mutex.Lock()
	now := e.clock.Now()
	e.tickCallback = callback
	e.ticker = time.NewTicker(interval)
	e.tickStopChan = make(chan struct{})
	e.tickDoneChan = make(chan struct{})
	e.lastTick = now
	e.recordLocked(EventAppLaunched, now)
	ticker, stop, done := e.ticker, e.tickStopChan, e.tickDoneChan
	e.mutex.Unlock()

	e.logger.Info("Starting tick loop", map[string]interface{}{
		"interval": interval.String(),
	})

	go e.tickLoop(ticker, stop, done)
	return nil
}

// StopTicking stops the tick loop and waits for an in-flight tick to finish.
func (e *AccountingEngine) StopTicking() {
	e.mutex.Lock()
	if e.ticker == nil {
		e.mutex.Unlock()
		return
	}
	e.ticker.Stop()
	close(e.tickStopChan)
	done := e.tickDoneChan
	e.ticker = nil
	e.tickStopChan = nil
	e.tickDoneChan = nil
	e.mutex.Unlock()

	<-done
	e.logger.Info("Tick loop stopped")
}

func (e *AccountingEngine) tickLoop(ticker *time.Ticker, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ticker.C:
			result := e.OnTick(e.clock.Now())

			e.mutex.Lock()
			callback := e.tickCallback
			e.mutex.Unlock()
			if callback != nil {
				callback(result)
			}

		case <-stop:
			return
		}
	}
}

// Shutdown stops ticking, records termination, persists and closes the store.
func (e *AccountingEngine) Shutdown() error {
	e.StopTicking()

	e.mutex.Lock()
	e.recordLocked(EventAppTerminating, e.clock.Now())
	e.mutex.Unlock()

	return e.Close()
}

// Close persists the ledger and releases the store without auditing.
func (e *AccountingEngine) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.store == nil {
		return nil
	}
	if err := e.store.Save(e.ledger); err != nil {
		e.logger.Warn("Final ledger save failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return e.store.Close()
}

func (e *AccountingEngine) pinMatches(pin string) bool {
	return subtle.ConstantTimeCompare([]byte(pin), []byte(e.pin)) == 1
}

func (e *AccountingEngine) rolloverIfNeededLocked(now time.Time) {
	if e.ledger.IsForDay(now) {
		return
	}
	previous := e.ledger.DayStart
	e.ledger.ResetForDay(now)
	e.ledger.ReconcileFlags(len(e.policy.PreLimit), len(e.policy.PostLimit))
	e.recordLocked(EventNewDayReset, now)
	e.logger.Info("New day, usage reset", map[string]interface{}{
		"previousDay": previous,
		"day":         e.ledger.DayStart,
	})
}

func (e *AccountingEngine) remainingLocked() float64 {
	return e.ledger.RemainingSeconds(e.config.DailyLimitSeconds())
}

func (e *AccountingEngine) persistLocked() {
	if e.store == nil {
		return
	}
	if err := e.store.Save(e.ledger); err != nil {
		e.logger.Warn("Failed to persist ledger", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (e *AccountingEngine) recordLocked(event string, now time.Time) {
	if e.audit == nil {
		return
	}
	e.audit.Record(AuditRecord{
		Timestamp:        now,
		Event:            event,
		SecondsUsed:      e.ledger.SecondsUsedToday,
		SecondsRemaining: math.Max(0, e.remainingLocked()),
	})
}

func (e *AccountingEngine) displayStateLocked(ledger *models.UsageLedger, now time.Time) models.DisplayState {
	remaining := ledger.RemainingSeconds(e.config.DailyLimitSeconds())
	tier := models.TierForRemaining(remaining)
	return models.DisplayState{
		RemainingSeconds: int(math.Ceil(math.Max(0, remaining))),
		RemainingMinutes: models.CeilMinutes(remaining),
		UsedSeconds:      int(ledger.SecondsUsedToday),
		LimitSeconds:     int(ledger.EffectiveLimitSeconds(e.config.DailyLimitSeconds())),
		OverrideActive:   ledger.TodayLimitOverride != nil,
		Tier:             tier,
		BlinkPhase:       tier.Blinks() && e.blinkOn,
		CountingEnabled:  e.countingEnabled,
		LimitReached:     ledger.LimitReachedToday,
		Day:              models.DayKey(now),
	}
}
