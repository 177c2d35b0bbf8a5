package services

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAuditLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestFileAuditLog_RecordWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "audit.log")
	audit := NewFileAuditLog(path)
	at := time.Date(2026, 3, 14, 15, 4, 5, 0, time.FixedZone("CET", 3600))

	audit.Record(AuditRecord{Timestamp: at, Event: EventLimitReached, SecondsUsed: 3600.4, SecondsRemaining: 0})

	lines := readAuditLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "2026-03-14T14:04:05Z", lines[0]["timestamp"])
	assert.Equal(t, "LimitReached", lines[0]["event"])
	assert.Equal(t, float64(3600), lines[0]["seconds_used"])
	assert.Equal(t, float64(0), lines[0]["seconds_remaining"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileAuditLog_AppendsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	NewFileAuditLog(path).Record(AuditRecord{Timestamp: testNow, Event: EventAppLaunched})
	NewFileAuditLog(path).Record(AuditRecord{Timestamp: testNow, Event: EventAppTerminating})
	NewFileAuditLog(path).Record(AuditRecord{Timestamp: testNow, Event: EventAppLaunched})

	lines := readAuditLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "AppLaunched", lines[0]["event"])
	assert.Equal(t, "AppTerminating", lines[1]["event"])
	assert.Equal(t, "AppLaunched", lines[2]["event"])
}

func TestAuditEventNames(t *testing.T) {
	assert.Equal(t, "SpokenPreAlert2", SpokenPreAlertEvent(2))
	assert.Equal(t, "AnnoyancePopup[1/3]", AnnoyancePopupEvent(1, 3))
	assert.Equal(t, "LimitChangedTo[90min]", LimitChangedToEvent(90))
	assert.Equal(t, "EditAlertsOK[pre=15,5,1 post=1]", EditAlertsOKEvent("pre=15,5,1 post=1"))
}

func TestMemoryAuditLog(t *testing.T) {
	audit := NewMemoryAuditLog()
	audit.Record(AuditRecord{Event: EventAppLaunched})
	audit.Record(AuditRecord{Event: EventLimitReached})
	audit.Record(AuditRecord{Event: EventLimitReached})

	assert.Equal(t, []string{"AppLaunched", "LimitReached", "LimitReached"}, audit.Events())
	assert.Equal(t, 2, audit.Count(EventLimitReached))
	assert.Len(t, audit.Records(), 3)
}
