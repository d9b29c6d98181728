package llm

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	emptyValueRe    = regexp.MustCompile(`:\s*([,}])`)
)

// ExtractJSON pulls the first JSON object out of arbitrary model output.
// Code fences are stripped, everything outside the outermost braces is
// discarded, and common model sloppiness (trailing commas, keys with no
// value) is normalized. Returns false when no object is present at all.
func ExtractJSON(raw string) (string, bool) {
	s := raw
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	s = s[start : end+1]

	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = emptyValueRe.ReplaceAllString(s, ": null$1")
	return s, true
}
