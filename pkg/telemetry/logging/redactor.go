package logging

import (
	"net/url"
	"regexp"
	"strings"
)

// Redacted replaces a removed secret.
const Redacted = "REDACTED"

// defaultParams are query parameters that carry credentials in signed or
// tokenised asset URLs.
var defaultParams = []string{
	"token", "access_token", "auth", "key", "api_key", "apikey",
	"signature", "sig", "password", "secret",
}

// urlPattern finds URLs embedded in free text such as error messages.
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// Redactor strips credentials from URLs before they are logged: userinfo,
// sensitive query parameters and presigned S3 (X-Amz-*) parameters.
type Redactor struct {
	params map[string]struct{}
}

// NewRedactor creates a Redactor for the default parameters plus extra.
// Parameter names match case-insensitively.
func NewRedactor(extra []string) *Redactor {
	r := &Redactor{params: make(map[string]struct{}, len(defaultParams)+len(extra))}
	for _, p := range defaultParams {
		r.params[p] = struct{}{}
	}
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			r.params[strings.ToLower(p)] = struct{}{}
		}
	}
	return r
}

func (r *Redactor) sensitive(param string) bool {
	lower := strings.ToLower(param)
	if strings.HasPrefix(lower, "x-amz-") && lower != "x-amz-expires" && lower != "x-amz-date" {
		return true
	}
	_, ok := r.params[lower]
	return ok
}

// RedactURL returns raw with credentials removed. Strings that do not parse
// as absolute URLs are returned unchanged.
func (r *Redactor) RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	changed := false
	if u.User != nil {
		u.User = url.User(Redacted)
		changed = true
	}

	if u.RawQuery != "" {
		q := u.Query()
		for name := range q {
			if r.sensitive(name) {
				q.Set(name, Redacted)
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}

	if !changed {
		return raw
	}
	return u.String()
}

// RedactString redacts every URL found in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" || !strings.Contains(value, "://") {
		return value
	}
	return urlPattern.ReplaceAllStringFunc(value, r.RedactURL)
}

// RedactArgs redacts string values in variadic log arguments.
// Args are in the form: key1, value1, key2, value2, ...
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		switch v := redacted[i].(type) {
		case string:
			redacted[i] = r.RedactString(v)
		case error:
			if s := v.Error(); strings.Contains(s, "://") {
				redacted[i] = r.RedactString(s)
			}
		}
	}
	return redacted
}
