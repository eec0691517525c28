package bundler

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

const redactedMask = "REDACTED"

// Redactor masks credentials that may leak into a debug map through package
// URLs or pass-through trace fields.
type Redactor interface {
	Redact(input []byte) ([]byte, error)
	RedactString(input string) string
}

type traceRedactor struct {
	patterns      []*regexp.Regexp
	sensitiveKeys map[string]struct{}
	queryKeys     map[string]struct{}
}

func newRedactor() Redactor {
	return &traceRedactor{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(password|passwd|token|secret|api[_-]?key)\s*[:=]\s*["']?([^"'\s&]+)["']?`),
		},
		// Exact key names only: module tables legitimately hold names such
		// as "token" or "secrets".
		sensitiveKeys: setOf("password", "passwd", "secret", "authorization", "api_key", "apikey", "access_token", "auth_token"),
		queryKeys:     setOf("token", "access_token", "sig", "signature", "key", "secret", "password", "x-amz-signature", "x-amz-credential", "x-goog-signature"),
	}
}

func setOf(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// Redact scrubs a JSON document structurally and re-indents it.
func (r *traceRedactor) Redact(input []byte) ([]byte, error) {
	var data any
	if err := json.Unmarshal(input, &data); err != nil {
		return nil, err
	}
	return json.MarshalIndent(r.scrub(data), "", "  ")
}

// RedactString masks URL credentials and sensitive query parameters, or
// key=value secrets in free text.
func (r *traceRedactor) RedactString(input string) string {
	if u, err := url.Parse(input); err == nil && u.Scheme != "" && u.Host != "" {
		return r.redactURL(u)
	}
	for _, p := range r.patterns {
		input = p.ReplaceAllString(input, "$1="+redactedMask)
	}
	return input
}

func (r *traceRedactor) redactURL(u *url.URL) string {
	if u.User != nil {
		u.User = url.User(redactedMask)
	}
	if u.RawQuery != "" {
		q := u.Query()
		changed := false
		for k := range q {
			if _, ok := r.queryKeys[strings.ToLower(k)]; ok {
				q.Set(k, redactedMask)
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	return u.String()
}

func (r *traceRedactor) scrub(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if _, ok := r.sensitiveKeys[strings.ToLower(k)]; ok {
				out[k] = "[" + redactedMask + "]"
				continue
			}
			out[k] = r.scrub(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.scrub(item)
		}
		return out
	case string:
		return r.RedactString(val)
	default:
		return v
	}
}
