package printing

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateEngine renders report templates with html/template and a set of
// formatting functions.
type TemplateEngine struct {
	funcMap template.FuncMap
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithFuncs adds or overrides template functions
func WithFuncs(funcs template.FuncMap) TemplateEngineOption {
	return func(e *TemplateEngine) {
		maps.Copy(e.funcMap, funcs)
	}
}

// NewTemplateEngine creates a new template engine with default configuration
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{}
	e.funcMap = template.FuncMap{
		"formatMoney":    formatMoney,
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,

		"truncate": truncate,
		"join":     strings.Join,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"title":    titleCase,
		"trim":     strings.TrimSpace,

		"inc":       func(i int) int { return i + 1 },
		"default":   defaultFunc,
		"deref":     deref,
		"shortUUID": shortUUID,

		"statusText": statusText,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RenderString renders template content with the provided data
func (e *TemplateEngine) RenderString(ctx context.Context, name, content string, data any) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", NewRenderError(ErrCodeRenderTimeout, "template rendering was cancelled", err)
	}

	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// RenderFile renders the template stored at path. A path that does not
// exist falls back to the built-in template with the same base name.
func (e *TemplateEngine) RenderFile(ctx context.Context, path string, data any) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", NewRenderError(ErrCodeTemplateNotFound, "failed to read template "+path, err)
		}
		builtin, ok := DefaultTemplate(filepath.Base(path))
		if !ok {
			return "", NewRenderError(ErrCodeTemplateNotFound, "template not found: "+path, err)
		}
		content = []byte(builtin)
	}
	return e.RenderString(ctx, filepath.Base(path), string(content), data)
}

// GetFuncMap returns a copy of the template function map
func (e *TemplateEngine) GetFuncMap() template.FuncMap {
	funcMap := make(template.FuncMap, len(e.funcMap))
	maps.Copy(funcMap, e.funcMap)
	return funcMap
}

// =============================================================================
// Template Functions
// =============================================================================

// formatMoney formats a decimal with thousand separators and two places
// Example: 1234.5 -> "1,234.50"
func formatMoney(v any) string {
	d := toDecimal(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")
	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return sign + result.String() + "." + decPart
}

// formatDate formats a time value as date string
// Example: time.Now() -> "2024-01-15"
func formatDate(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// formatDateTime formats a time value as datetime string
// Example: time.Now() -> "2024-01-15 14:30"
func formatDateTime(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

// truncate truncates a string to max runes, appending "..."
func truncate(s string, max int) string {
	const suffix = "..."
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(suffix) {
		return string(runes[:max])
	}
	return string(runes[:max-len(suffix)]) + suffix
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func defaultFunc(def, val any) any {
	switch v := val.(type) {
	case nil:
		return def
	case string:
		if v == "" {
			return def
		}
	case *string:
		if v == nil || *v == "" {
			return def
		}
		return *v
	}
	return val
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func shortUUID(id uuid.UUID) string {
	return id.String()[:8]
}

// statusText turns an asset status like "waiting_for_release" into "Waiting For Release"
func statusText(status any) string {
	var s string
	switch v := status.(type) {
	case string:
		s = v
	case interface{ String() string }:
		s = v.String()
	}
	return titleCase(strings.ReplaceAll(s, "_", " "))
}

// =============================================================================
// Helper Functions
// =============================================================================

func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	default:
		return time.Time{}
	}
}
