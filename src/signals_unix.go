//go:build unix

package main

import (
	"os"
	"syscall"

	"screentime-bar/src/models"
)

// SIGUSR1/SIGUSR2 let lock-screen hooks (sleepwatcher and friends) pause and
// resume counting:
//
//	kill -USR1 $(pgrep screentime-bar)   # screen locked
//	kill -USR2 $(pgrep screentime-bar)   # screen unlocked
//
// These are the only power events the tray receives. There is no sleep or
// session listener, so sleep is excluded only because the engine discards
// tick gaps of 10s or more; a hook that sends USR1 before sleep and USR2 on
// wake pauses counting explicitly.
func powerSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1, syscall.SIGUSR2}
}

func powerEventForSignal(sig os.Signal) (models.PowerEvent, bool) {
	switch sig {
	case syscall.SIGUSR1:
		return models.ScreenLocked, true
	case syscall.SIGUSR2:
		return models.ScreenUnlocked, true
	default:
		return 0, false
	}
}
