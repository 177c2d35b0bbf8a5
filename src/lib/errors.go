// Package lib provides shared utilities like error handling and logging.
package lib

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Error codes. Callers branch on these with IsErrorCode or GetErrorCode.
const (
	ErrCodeConfig      = "CONFIG_ERROR"
	ErrCodeLedger      = "LEDGER_ERROR"
	ErrCodePolicy      = "POLICY_ERROR"
	ErrCodePersistence = "PERSISTENCE_ERROR"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeAuth        = "AUTH_ERROR"
	ErrCodeSystem      = "SYSTEM_ERROR"
	ErrCodeTemplate    = "TEMPLATE_ERROR"
	ErrCodeNotify      = "NOTIFY_ERROR"
)

// ErrNotFound reports that a durable record does not exist yet.
var ErrNotFound = errors.New("record not found")

// AppError is a coded error carrying the package and source line it was
// raised from.
type AppError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"cause,omitempty"`
	Component string                 `json:"component"`
	Caller    string                 `json:"caller"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair and returns e for chaining.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// newAppError must be called directly by an exported constructor so the
// recorded caller is the constructor's caller.
func newAppError(code, message string, cause error) *AppError {
	_, file, line, ok := runtime.Caller(2)
	caller := "unknown"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return &AppError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Component: componentOf(file),
		Caller:    caller,
	}
}

// componentOf returns the directory under src/ a source file lives in,
// e.g. "services" for .../src/services/engine.go.
func componentOf(file string) string {
	parts := strings.Split(filepath.ToSlash(file), "/")
	for i := len(parts) - 2; i >= 0; i-- {
		if parts[i] == "src" && i+2 < len(parts) {
			return parts[i+1]
		}
	}
	return "unknown"
}

// NewError creates an error with no cause.
func NewError(code, message string) *AppError {
	return newAppError(code, message, nil)
}

// WrapError wraps err under code. A nil err yields nil.
func WrapError(err error, code, message string) *AppError {
	if err == nil {
		return nil
	}
	return newAppError(code, message, err)
}

// The helpers below take an optional cause; nil means the failure
// originates here.

// ConfigError reports an unreadable or unwritable config file.
func ConfigError(cause error, message string) *AppError {
	return newAppError(ErrCodeConfig, message, cause)
}

// PersistenceError reports a failed load or save of durable state.
func PersistenceError(cause error, message string) *AppError {
	return newAppError(ErrCodePersistence, message, cause)
}

// PolicyError reports an alert policy that could not be encoded or stored.
func PolicyError(cause error, message string) *AppError {
	return newAppError(ErrCodePolicy, message, cause)
}

// NotifyError reports a failed alert delivery.
func NotifyError(cause error, message string) *AppError {
	return newAppError(ErrCodeNotify, message, cause)
}

// LedgerError reports a usage ledger that cannot be trusted.
func LedgerError(message string) *AppError {
	return newAppError(ErrCodeLedger, message, nil)
}

// ValidationError reports rejected input.
func ValidationError(message string) *AppError {
	return newAppError(ErrCodeValidation, message, nil)
}

// AuthError reports a rejected PIN.
func AuthError(message string) *AppError {
	return newAppError(ErrCodeAuth, message, nil)
}

// SystemError reports an OS-level failure.
func SystemError(message string) *AppError {
	return newAppError(ErrCodeSystem, message, nil)
}

// TemplateError reports a bad title template.
func TemplateError(message string) *AppError {
	return newAppError(ErrCodeTemplate, message, nil)
}

// IsErrorCode reports whether the first AppError in err's chain has code.
func IsErrorCode(err error, code string) bool {
	return GetErrorCode(err) == code && code != ""
}

// GetErrorCode returns the code of the first AppError in err's chain, or "".
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
