// Package redact scrubs sensitive material from strings before they are
// logged. Provider errors can echo request headers or URLs, which would
// otherwise put LLM API keys and local file paths into the log stream.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactedKeyPlaceholder  = "[REDACTED_KEY]"
	RedactedPathPlaceholder = "[REDACTED_PATH]"
)

var (
	// Authorization headers and key-value credential pairs.
	bearerRegex = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/]{8,}`)
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// Provider key formats: OpenRouter (sk-or-...) and Google AI (AIza...).
	openRouterKeyRegex = regexp.MustCompile(`sk-or-[A-Za-z0-9\-]{8,}`)
	googleKeyRegex     = regexp.MustCompile(`AIza[A-Za-z0-9_\-]{8,}`)

	// Absolute filesystem paths, e.g. the SQLite database file.
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)

	// Applied in order: specific key formats first, then the generic
	// credential patterns, paths last.
	patterns = []struct {
		re          *regexp.Regexp
		placeholder string
	}{
		{openRouterKeyRegex, RedactedKeyPlaceholder},
		{googleKeyRegex, RedactedKeyPlaceholder},
		{bearerRegex, RedactedKeyPlaceholder},
		{apiKeyRegex, "${1}${2}" + RedactedKeyPlaceholder},
		{unixPathRegex, RedactedPathPlaceholder},
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, p := range patterns {
		result = p.re.ReplaceAllString(result, p.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
