package printing

import (
	"bytes"
	"context"
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lima has no DST
var limaTZ = time.FixedZone("America/Lima", -5*60*60)

// TemplateEngine renders html/template documents with formatting helpers
// for Peruvian receipts.
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

// NewTemplateEngine creates a template engine with the default helpers
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{}
	e.funcMap = template.FuncMap{
		"formatMoney":    FormatMoney,
		"formatDecimal":  formatDecimal,
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"amountInWords":  AmountInWords,
		"upper":          strings.ToUpper,
		"title":          TitleCase,
		"default":        defaultFunc,
		"inc":            func(i int) int { return i + 1 },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RenderString parses and executes a template
func (e *TemplateEngine) RenderString(ctx context.Context, name, content string, data any) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
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

// FormatMoney formats soles with thousands separators: S/ 1,234.50
func FormatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "S/ " + b.String() + "." + frac
}

func formatDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(limaTZ).Format("02/01/2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(limaTZ).Format("02/01/2006 15:04")
}

// TitleCase turns registry names like "QUISPE MAMANI JUAN" into "Quispe Mamani Juan"
func TitleCase(s string) string {
	return cases.Title(language.Spanish).String(strings.ToLower(strings.TrimSpace(s)))
}

func defaultFunc(def, v string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
