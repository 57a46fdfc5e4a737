package views

import (
	"encoding/json"
	"html/template"
	"net/url"
	"strings"
	"time"
)

var funcs = template.FuncMap{
	"date":       formatDate,
	"isoDate":    isoDate,
	"dateInput":  dateInput,
	"html":       trustedHTML,
	"jsonLD":     jsonLD,
	"pathEscape": url.PathEscape,
	"percent":    percent,
	"initial":    initial,
	"lower":      strings.ToLower,
	"dict":       dict,
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// dateInput formats t for an <input type="datetime-local">.
func dateInput(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04")
}

// trustedHTML marks editor-authored article bodies as safe. Only signed-in
// authors can write them.
func trustedHTML(s string) template.HTML {
	return template.HTML(s)
}

func jsonLD(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return template.JS("{}")
	}
	return template.JS(b)
}

// percent scales n against max for chart bar heights.
func percent(n, max int) int {
	if max <= 0 {
		return 0
	}
	return n * 100 / max
}

func initial(s string) string {
	for _, r := range s {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// dict builds a map for passing several values to a partial.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			m[k] = kv[i+1]
		}
	}
	return m
}
