package services

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"screentime-bar/src/lib"
)

// Audit event names.
const (
	EventAppLaunched       = "AppLaunched"
	EventAppTerminating    = "AppTerminating"
	EventNewDayReset       = "NewDayReset"
	EventLimitReached      = "LimitReached"
	EventManualResetOK     = "ManualResetOK"
	EventManualResetBadPIN = "ManualResetBADPIN"
	EventEditLimitBadPIN   = "EditLimitBADPIN"
	EventEditAlertsBadPIN  = "EditAlertsBADPIN"
	EventSpokenPostAlert   = "SpokenPostAlert"
)

const (
	auditTimestampLayout = "2006-01-02T15:04:05Z"
	auditFileMode        = 0o600
)

// SpokenPreAlertEvent names the audit line for the n-th (1-based) pre-limit rule.
func SpokenPreAlertEvent(n int) string {
	return fmt.Sprintf("SpokenPreAlert%d", n)
}

// AnnoyancePopupEvent names the audit line for popup i of at most n.
func AnnoyancePopupEvent(i, n int) string {
	return fmt.Sprintf("AnnoyancePopup[%d/%d]", i, n)
}

// LimitChangedToEvent names the audit line for a new daily override.
func LimitChangedToEvent(minutes int) string {
	return fmt.Sprintf("LimitChangedTo[%dmin]", minutes)
}

// EditAlertsOKEvent names the audit line for an accepted policy edit.
func EditAlertsOKEvent(summary string) string {
	return "EditAlertsOK[" + summary + "]"
}

// AuditRecord is one line of the audit trail.
type AuditRecord struct {
	Timestamp        time.Time
	Event            string
	SecondsUsed      float64
	SecondsRemaining float64
}

// AuditLog is an append-only sink for significant events.
type AuditLog interface {
	Record(record AuditRecord)
}

// appendFileWriter reopens the file in append mode for every write, so
// earlier lines are never rewritten and an external rotation is picked up.
type appendFileWriter struct {
	path string
}

func (w appendFileWriter) Write(p []byte) (int, error) {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, auditFileMode)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(p)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

// FileAuditLog writes JSON lines:
//
//	{"timestamp":"2026-10-19T14:03:11Z","event":"LimitReached","seconds_used":3600,"seconds_remaining":0}
type FileAuditLog struct {
	path   string
	zl     zerolog.Logger
	logger *lib.Logger
	mu     sync.Mutex
}

// NewFileAuditLog creates an audit log appending to path.
func NewFileAuditLog(path string) *FileAuditLog {
	return &FileAuditLog{
		path:   path,
		zl:     zerolog.New(appendFileWriter{path: path}),
		logger: lib.NewLogger("audit-log"),
	}
}

// Path returns the audit file location.
func (a *FileAuditLog) Path() string {
	return a.path
}

// Record appends one line. Failures are logged and otherwise ignored.
func (a *FileAuditLog) Record(record AuditRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		a.logger.Warn("Failed to create audit directory", map[string]interface{}{
			"error": err.Error(),
			"event": record.Event,
		})
		return
	}

	a.zl.Log().
		Str("timestamp", record.Timestamp.UTC().Format(auditTimestampLayout)).
		Str("event", record.Event).
		Int64("seconds_used", int64(math.Round(record.SecondsUsed))).
		Int64("seconds_remaining", int64(math.Round(record.SecondsRemaining))).
		Send()
}

// MemoryAuditLog keeps records in memory; used by tests and read-only commands.
type MemoryAuditLog struct {
	mu      sync.Mutex
	records []AuditRecord
}

// NewMemoryAuditLog creates an empty in-memory audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

// Record appends a record.
func (m *MemoryAuditLog) Record(record AuditRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
}

// Records returns a copy of everything recorded so far.
func (m *MemoryAuditLog) Records() []AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditRecord(nil), m.records...)
}

// Events returns just the event names, in order.
func (m *MemoryAuditLog) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]string, len(m.records))
	for i, r := range m.records {
		events[i] = r.Event
	}
	return events
}

// Count returns how many times event was recorded.
func (m *MemoryAuditLog) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.Event == event {
			n++
		}
	}
	return n
}
