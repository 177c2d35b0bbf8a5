// Package lib provides shared utilities like error handling and logging.
package lib

import (
	"bytes"
	"strings"
	"sync"
	"text/template"
)

// maxCachedTemplates bounds the parse cache; title formats rarely change.
const maxCachedTemplates = 32

// TemplateEngine provides template execution with validation and error handling.
// Parsed templates are cached because the tray title is rendered on every tick.
type TemplateEngine struct {
	logger *Logger
	mu     sync.Mutex
	cache  map[string]*template.Template
}

// NewTemplateEngine creates a new template engine.
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{
		logger: NewLogger("template"),
		cache:  make(map[string]*template.Template),
	}
}

func (te *TemplateEngine) parse(templateStr string) (*template.Template, error) {
	te.mu.Lock()
	defer te.mu.Unlock()

	if tmpl, ok := te.cache[templateStr]; ok {
		return tmpl, nil
	}

	tmpl, err := template.New("display").Parse(templateStr)
	if err != nil {
		return nil, err
	}

	if len(te.cache) >= maxCachedTemplates {
		te.cache = make(map[string]*template.Template)
	}
	te.cache[templateStr] = tmpl
	return tmpl, nil
}

// Execute executes a template string with the provided data.
func (te *TemplateEngine) Execute(templateStr string, data interface{}) (string, error) {
	if templateStr == "" {
		return "", TemplateError("template string cannot be empty")
	}

	tmpl, err := te.parse(templateStr)
	if err != nil {
		te.logger.Error("Template parsing failed", map[string]interface{}{
			"template": templateStr,
			"error":    err.Error(),
		})
		return "", WrapError(err, ErrCodeTemplate, "failed to parse template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		te.logger.Error("Template execution failed", map[string]interface{}{
			"template": templateStr,
			"error":    err.Error(),
		})
		return "", WrapError(err, ErrCodeTemplate, "failed to execute template")
	}

	return buf.String(), nil
}

// Validate validates a template string without executing it.
func (te *TemplateEngine) Validate(templateStr string) error {
	if templateStr == "" {
		return TemplateError("template string cannot be empty")
	}

	if _, err := te.parse(templateStr); err != nil {
		te.logger.Warn("Template validation failed", map[string]interface{}{
			"template": templateStr,
			"error":    err.Error(),
		})
		return WrapError(err, ErrCodeTemplate, "template validation failed")
	}

	return nil
}

// ExecuteWithDefault executes a template and returns a default value on error.
func (te *TemplateEngine) ExecuteWithDefault(templateStr string, data interface{}, defaultValue string) string {
	result, err := te.Execute(templateStr, data)
	if err != nil {
		te.logger.Warn("Template execution failed, using default", map[string]interface{}{
			"template": templateStr,
			"default":  defaultValue,
			"error":    err.Error(),
		})
		return defaultValue
	}
	return result
}

// ExpandPlaceholders substitutes single-brace placeholders such as {minutes}.
// Alert messages use this lighter syntax so parents can type them without
// knowing Go template rules.
func ExpandPlaceholders(text string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(values)*2)
	for name, value := range values {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Global template engine instance.
var globalTemplateEngine = NewTemplateEngine()

// ExecuteTemplate executes a template using the global engine.
func ExecuteTemplate(templateStr string, data interface{}) (string, error) {
	return globalTemplateEngine.Execute(templateStr, data)
}

// ValidateTemplate validates a template using the global engine.
func ValidateTemplate(templateStr string) error {
	return globalTemplateEngine.Validate(templateStr)
}

// ExecuteTemplateWithDefault executes a template with default using the global engine.
func ExecuteTemplateWithDefault(templateStr string, data interface{}, defaultValue string) string {
	return globalTemplateEngine.ExecuteWithDefault(templateStr, data, defaultValue)
}
