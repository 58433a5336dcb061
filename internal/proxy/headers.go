package proxy

import (
	"net/http"
	"strconv"
	"strings"
)

// headerRule describes how one backend response header reaches the client.
// Headers without a rule are never forwarded.
type headerRule struct {
	Name string
	// Default is written when the backend sent nothing usable. Empty means omit.
	Default string
	// Valid rejects malformed values; nil accepts any non-empty value.
	Valid func(string) bool
	// Rewrite adjusts an accepted value before it is written.
	Rewrite func(string) string
}

// downloadHeaderRules applies to POST /api/download.
var downloadHeaderRules = []headerRule{
	{Name: "Content-Type", Default: "application/octet-stream"},
	{Name: "Content-Disposition", Default: "attachment"},
	{Name: "Content-Length", Valid: validContentLength},
}

// directHeaderRules applies to GET /api/download, which browsers reach by navigation.
// The response must always save to disk, so inline dispositions become attachments.
var directHeaderRules = []headerRule{
	{Name: "Content-Type", Default: "application/octet-stream"},
	{Name: "Content-Disposition", Default: "attachment", Rewrite: forceAttachment},
	{Name: "Content-Length", Valid: validContentLength},
}

func applyHeaderRules(dst, src http.Header, rules []headerRule) {
	for _, rule := range rules {
		value := strings.TrimSpace(src.Get(rule.Name))
		if value != "" && rule.Valid != nil && !rule.Valid(value) {
			value = ""
		}
		if value == "" {
			value = rule.Default
		} else if rule.Rewrite != nil {
			value = rule.Rewrite(value)
		}
		if value != "" {
			dst.Set(rule.Name, value)
		}
	}
}

func validContentLength(v string) bool {
	n, err := strconv.ParseInt(v, 10, 64)
	return err == nil && n >= 0
}

// forceAttachment replaces an "inline" disposition type with "attachment",
// keeping filename parameters untouched.
func forceAttachment(v string) string {
	dispType, params, _ := strings.Cut(v, ";")
	if !strings.EqualFold(strings.TrimSpace(dispType), "inline") {
		return v
	}
	if params == "" {
		return "attachment"
	}
	return "attachment;" + params
}
