package models

import (
	"os"
	"testing"

	"screentime-bar/src/internal/testhelpers"
)

func TestMain(m *testing.M) {
	os.Exit(testhelpers.RunSilenced(m))
}
