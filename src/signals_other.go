//go:build !unix

package main

import (
	"os"

	"screentime-bar/src/models"
)

func powerSignals() []os.Signal {
	return nil
}

func powerEventForSignal(os.Signal) (models.PowerEvent, bool) {
	return 0, false
}
