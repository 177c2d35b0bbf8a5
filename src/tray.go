package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/getlantern/systray"
	"github.com/spf13/cobra"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
	"screentime-bar/src/services"
)

const (
	fallbackTitle  = "⏳"
	menuStatusRows = 4
)

type trayApp struct {
	app        *app
	engine     *services.AccountingEngine
	lock       *lib.InstanceLock
	dispatcher *services.AlertDispatcher
	prompter   *pinPrompter
	logger     *lib.Logger

	statusItems []*systray.MenuItem
	signals     chan os.Signal
	stopOnce    sync.Once
}

func runTray(_ *cobra.Command, _ []string) error {
	if daemonMode {
		return runAsDaemon()
	}

	a := loadApp()
	engine, lock, err := a.openEngine(lib.RealClock{})
	if err != nil {
		return err
	}

	timeout := time.Duration(a.config.NotifyTimeout) * time.Second
	tray := &trayApp{
		app:        a,
		engine:     engine,
		lock:       lock,
		dispatcher: services.NewAlertDispatcher(alertSink(timeout)),
		prompter:   newPINPrompter(timeout),
		logger:     lib.NewLogger("tray"),
		signals:    make(chan os.Signal, 4),
	}

	systray.Run(tray.onReady, tray.onExit)
	return nil
}

// alertSink speaks and shows alerts on macOS and only logs them elsewhere.
func alertSink(timeout time.Duration) services.AlertSink {
	if runtime.GOOS != "darwin" {
		return services.NewLogNotifier()
	}
	return services.NewCommandNotifier(timeout)
}

func (t *trayApp) onReady() {
	systray.SetTitle(fallbackTitle)
	systray.SetTooltip("Daily screen time")

	for i := 0; i < menuStatusRows; i++ {
		item := systray.AddMenuItem("", "")
		item.Disable()
		t.statusItems = append(t.statusItems, item)
	}

	systray.AddSeparator()
	mReset := systray.AddMenuItem("Reset Today…", "Zero today's usage (PIN required)")
	mLimit := systray.AddMenuItem("Change Today's Limit…", "Override today's limit (PIN required)")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	t.render(t.engine.QueryDisplayState(time.Now()))

	interval := time.Duration(t.app.config.TickInterval) * time.Second
	if err := t.engine.StartTicking(interval, t.onTick); err != nil {
		t.logger.Error("Failed to start tick loop", map[string]interface{}{
			"error": err.Error(),
		})
	}

	signal.Notify(t.signals, append(powerSignals(), syscall.SIGINT, syscall.SIGTERM)...)
	go t.signalLoop()

	go func() {
		for {
			select {
			case <-mReset.ClickedCh:
				go t.promptReset()
			case <-mLimit.ClickedCh:
				go t.promptLimit()
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

func (t *trayApp) onTick(result services.TickResult) {
	if len(result.Alerts) > 0 {
		t.dispatcher.Enqueue(result.Alerts...)
	}
	t.render(result.Display)
}

func (t *trayApp) render(state models.DisplayState) {
	systray.SetTitle(trayTitle(t.app.config.TitleFormat, state, time.Now()))
	updateMenuItems(t.statusItems, statusLines(state))
}

// trayTitle renders the configured title. In the off phase of a blink the
// tier glyph is blanked.
func trayTitle(format string, state models.DisplayState, now time.Time) string {
	data := models.NewTemplateData(state, now)
	if state.BlinkPhase {
		data.Emoji = "  "
	}
	return lib.ExecuteTemplateWithDefault(format, data, fallbackTitle+" "+data.Remaining)
}

func statusLines(state models.DisplayState) []string {
	remaining := "⏱ Remaining: " + models.FormatMinutes(state.RemainingMinutes)
	if state.LimitReached || state.RemainingSeconds == 0 {
		remaining = "⛔️ Time is up for today"
	}

	limit := models.FormatMinutes(state.LimitSeconds / 60)
	if state.OverrideActive {
		limit += " (changed today)"
	}

	counting := "▶️ Counting"
	if !state.CountingEnabled {
		counting = "⏸ Paused"
	}

	return []string{
		remaining,
		"📊 Used: " + models.FormatMinutes(state.UsedSeconds/60) + " of " + limit,
		counting,
		"📅 " + state.Day,
	}
}

func updateMenuItems(items []*systray.MenuItem, lines []string) {
	for i, item := range items {
		if i < len(lines) && lines[i] != "" {
			item.SetTitle(lines[i])
			item.Show()
		} else {
			item.Hide()
		}
	}
}

func (t *trayApp) signalLoop() {
	for sig := range t.signals {
		if event, ok := powerEventForSignal(sig); ok {
			t.engine.HandlePowerEvent(event, time.Now())
			t.render(t.engine.QueryDisplayState(time.Now()))
			continue
		}
		t.logger.Info("Received signal, quitting", map[string]interface{}{
			"signal": sig.String(),
		})
		systray.Quit()
		return
	}
}

func (t *trayApp) promptReset() {
	pin, ok := t.prompter.Ask(context.Background(), "Enter the admin PIN to reset today's screen time.", true)
	if !ok {
		return
	}
	err := t.engine.ResetToday(pin, time.Now())
	t.reportCommand(err, "Today's screen time was reset.")
}

func (t *trayApp) promptLimit() {
	pin, ok := t.prompter.Ask(context.Background(), "Enter the admin PIN to change today's limit.", true)
	if !ok {
		return
	}
	answer, ok := t.prompter.Ask(context.Background(), "New limit for today, in minutes (1-1440):", false)
	if !ok {
		return
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		t.reportCommand(lib.ValidationError("limit must be a whole number of minutes"), "")
		return
	}
	err = t.engine.SetTodayLimitOverride(pin, minutes, time.Now())
	t.reportCommand(err, fmt.Sprintf("Today's limit is now %s.", models.FormatMinutes(minutes)))
}

func (t *trayApp) reportCommand(err error, success string) {
	message := success
	if err != nil {
		message = commandErrorMessage(err)
		t.logger.Warn("Admin command rejected", map[string]interface{}{
			"error": err.Error(),
		})
	}
	t.dispatcher.Enqueue(models.AlertIntent{Message: message, FiredAt: time.Now()})
	t.render(t.engine.QueryDisplayState(time.Now()))
}

// commandErrorMessage turns an engine error into a user-facing sentence.
func commandErrorMessage(err error) string {
	switch lib.GetErrorCode(err) {
	case lib.ErrCodeAuth:
		return "Incorrect PIN."
	case lib.ErrCodeValidation:
		var appErr *lib.AppError
		if errors.As(err, &appErr) {
			return "Invalid input: " + appErr.Message + "."
		}
		return "Invalid input."
	default:
		return "The change could not be applied."
	}
}

func (t *trayApp) onExit() {
	t.stopOnce.Do(func() {
		signal.Stop(t.signals)
		t.dispatcher.Stop()
		if err := t.engine.Shutdown(); err != nil {
			t.logger.Warn("Engine shutdown failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if err := t.lock.Release(); err != nil {
			t.logger.Warn("Failed to release instance lock", map[string]interface{}{
				"error": err.Error(),
			})
		}
	})
}
