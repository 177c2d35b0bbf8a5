package services

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"screentime-bar/src/lib"
	"screentime-bar/src/models"
)

const (
	alertTitle        = "Screen Time"
	dispatchQueueSize = 16
)

// AlertSink renders an alert intent. Delivery is best effort.
type AlertSink interface {
	Deliver(ctx context.Context, intent models.AlertIntent) error
}

// CommandRunner executes an external command; swapped out in tests.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, path, args...) // #nosec G204 fixed binaries resolved via LookPath
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// CommandNotifier speaks, plays and shows alerts with the macOS say,
// afplay and osascript tools.
type CommandNotifier struct {
	logger  *lib.Logger
	run     CommandRunner
	timeout time.Duration
}

// NewCommandNotifier creates a notifier whose commands are killed after timeout.
func NewCommandNotifier(timeout time.Duration) *CommandNotifier {
	return &CommandNotifier{
		logger:  lib.NewLogger("notifier"),
		run:     runCommand,
		timeout: timeout,
	}
}

// SetRunner replaces the command runner. Nil restores the default.
func (n *CommandNotifier) SetRunner(run CommandRunner) {
	if run == nil {
		run = runCommand
	}
	n.run = run
}

// Deliver plays the sound, speaks the message and shows it, in that order.
// Every step is attempted; failures are joined into one NOTIFY_ERROR.
func (n *CommandNotifier) Deliver(ctx context.Context, intent models.AlertIntent) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	n.logger.Debug("Delivering alert", map[string]interface{}{
		"kind":  intent.Kind.String(),
		"popup": intent.Popup,
	})

	var errs []error
	if intent.Sound != "" {
		if err := n.run(ctx, "afplay", intent.Sound); err != nil {
			errs = append(errs, err)
		}
	}
	if intent.Voice != "" {
		if err := n.run(ctx, "say", "-v", intent.Voice, intent.Message); err != nil {
			errs = append(errs, err)
		}
	}
	if err := n.run(ctx, "osascript", "-e", appleScriptFor(intent, n.timeout)); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return lib.NotifyError(errors.Join(errs...), "alert delivery failed").
			WithContext("kind", intent.Kind.String())
	}
	return nil
}

// appleScriptFor builds a modal dialog for popups and a banner otherwise.
// The dialog gives up before the command timeout would kill it.
func appleScriptFor(intent models.AlertIntent, timeout time.Duration) string {
	message := AppleScriptQuote(intent.Message)
	title := AppleScriptQuote(alertTitle)
	if intent.Popup {
		giveUp := int(timeout/time.Second) - 1
		if giveUp < 1 {
			giveUp = 1
		}
		return fmt.Sprintf(`display dialog %s with title %s buttons {"OK"} default button 1 with icon caution giving up after %d`,
			message, title, giveUp)
	}
	return fmt.Sprintf("display notification %s with title %s", message, title)
}

// AppleScriptQuote renders s as an AppleScript string literal.
func AppleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// LogNotifier only logs alerts; used when running headless.
type LogNotifier struct {
	logger *lib.Logger
}

// NewLogNotifier creates a log-only sink.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: lib.NewLogger("notifier")}
}

// Deliver logs the intent.
func (n *LogNotifier) Deliver(_ context.Context, intent models.AlertIntent) error {
	n.logger.Info("Alert", map[string]interface{}{
		"kind":    intent.Kind.String(),
		"message": intent.Message,
		"voice":   intent.Voice,
		"popup":   intent.Popup,
	})
	return nil
}

// AlertDispatcher delivers intents on one background worker so the tick loop
// never blocks on a dialog and alerts are shown one at a time, in order.
type AlertDispatcher struct {
	sink   AlertSink
	logger *lib.Logger
	queue  chan models.AlertIntent
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAlertDispatcher starts a worker delivering to sink.
func NewAlertDispatcher(sink AlertSink) *AlertDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &AlertDispatcher{
		sink:   sink,
		logger: lib.NewLogger("dispatcher"),
		queue:  make(chan models.AlertIntent, dispatchQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Enqueue hands intents to the worker. When the queue is full the intent is
// dropped; it has already been consumed by the engine.
func (d *AlertDispatcher) Enqueue(intents ...models.AlertIntent) {
	for _, intent := range intents {
		select {
		case d.queue <- intent:
		case <-d.ctx.Done():
			return
		default:
			d.logger.Warn("Alert queue full, dropping alert", map[string]interface{}{
				"kind": intent.Kind.String(),
			})
		}
	}
}

// Stop cancels in-flight delivery and waits for the worker to exit.
func (d *AlertDispatcher) Stop() {
	d.once.Do(func() {
		d.cancel()
		d.wg.Wait()
	})
}

func (d *AlertDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case intent := <-d.queue:
			if err := d.sink.Deliver(d.ctx, intent); err != nil {
				d.logger.Warn("Alert delivery failed", map[string]interface{}{
					"kind":  intent.Kind.String(),
					"error": err.Error(),
				})
			}
		case <-d.ctx.Done():
			return
		}
	}
}
