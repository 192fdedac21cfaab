package zpl

import (
	"regexp"
	"strings"
)

// Placeholder tokens are ASCII-brace {key} spans. Keys never contain braces,
// so substitution cannot re-enter its own output.
var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Substitute replaces every {key} token in a command with values[key], or with
// the empty string when the key is absent. Replacement is global per key and
// order-independent across keys.
func Substitute(command string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(command, func(token string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		return values[key]
	})
}

// Placeholders lists the distinct placeholder keys present in a command, in
// first-appearance order. The template editor uses this to build its value
// form for test prints.
func Placeholders(command string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(command, -1) {
		key := match[1]
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
