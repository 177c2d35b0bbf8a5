package main

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"screentime-bar/src/lib"
	"screentime-bar/src/services"
)

type outputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() // #nosec G204 fixed binary
}

// pinPrompter asks the user for text with an osascript dialog.
type pinPrompter struct {
	timeout time.Duration
	output  outputRunner
	logger  *lib.Logger
}

func newPINPrompter(timeout time.Duration) *pinPrompter {
	return &pinPrompter{
		timeout: timeout,
		output:  runOutput,
		logger:  lib.NewLogger("prompt"),
	}
}

// Ask shows message and returns the typed answer. ok is false when the user
// cancels, the dialog times out, or osascript is unavailable.
func (p *pinPrompter) Ask(ctx context.Context, message string, hidden bool) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.output(ctx, "osascript", "-e", dialogScript(message, hidden, p.timeout))
	if err != nil {
		// Cancel exits non-zero too.
		p.logger.Debug("Prompt dismissed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}
	return parseDialogAnswer(string(out))
}

func dialogScript(message string, hidden bool, timeout time.Duration) string {
	giveUp := int(timeout/time.Second) - 1
	if giveUp < 1 {
		giveUp = 1
	}
	script := fmt.Sprintf(`display dialog %s default answer "" with title %s buttons {"Cancel", "OK"} default button "OK"`,
		services.AppleScriptQuote(message), services.AppleScriptQuote("Screen Time"))
	if hidden {
		script += " with hidden answer"
	}
	return fmt.Sprintf("%s giving up after %d", script, giveUp)
}

// parseDialogAnswer extracts the text from osascript's record output, e.g.
// "button returned:OK, text returned:4739, gave up:false".
func parseDialogAnswer(output string) (string, bool) {
	output = strings.TrimSpace(output)
	if strings.Contains(output, "gave up:true") {
		return "", false
	}
	_, answer, found := strings.Cut(output, "text returned:")
	if !found {
		return "", false
	}
	answer, _, _ = strings.Cut(answer, ", gave up:")
	return answer, true
}
