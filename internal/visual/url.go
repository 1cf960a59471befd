// Package visual renders the study sheet illustration and stores it durably.
package visual

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ExtractURL finds the image location in a provider payload. Providers return
// a bare string, an object with url or href, or wrap either in an array or in
// data, images or output fields. Only http(s) and data: URLs count.
func ExtractURL(v any) (string, bool) {
	if u, ok := direct(v); ok {
		return u, true
	}
	if arr, ok := v.([]any); ok && len(arr) > 0 {
		if u, ok := direct(arr[0]); ok {
			return u, true
		}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	for _, field := range []string{"data", "images"} {
		if arr, ok := obj[field].([]any); ok && len(arr) > 0 {
			if u, ok := direct(arr[0]); ok {
				return u, true
			}
		}
	}
	if out, ok := obj["output"]; ok && out != nil {
		if u, ok := direct(out); ok {
			return u, true
		}
		if arr, ok := out.([]any); ok && len(arr) > 0 {
			if u, ok := direct(arr[0]); ok {
				return u, true
			}
		}
	}
	return "", false
}

func direct(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return acceptable(t)
	case map[string]any:
		for _, k := range []string{"url", "href"} {
			if s, ok := t[k].(string); ok {
				if u, ok := acceptable(s); ok {
					return u, true
				}
			}
		}
	case fmt.Stringer:
		return acceptable(t.String())
	}
	return "", false
}

func acceptable(s string) (string, bool) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return s, true
	}
	return "", false
}

var (
	nameStrip = regexp.MustCompile(`[^a-z0-9\s-]`)
	nameSpace = regexp.MustCompile(`\s+`)
)

// FileName derives the storage name (without extension) for a visual.
func FileName(title string, t time.Time) string {
	s := strings.ToLower(title)
	s = nameStrip.ReplaceAllString(s, "")
	s = nameSpace.ReplaceAllString(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return fmt.Sprintf("visual-%s-%d", s, t.UnixMilli())
}
