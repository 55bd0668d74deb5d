package textutil

import (
	"regexp"
	"strings"
)

// bracketedPattern matches square-bracketed segments, which on disc labels
// carry release-group or format junk rather than title text.
var bracketedPattern = regexp.MustCompile(`\[(.*?)]`)

var whitespaceRunPattern = regexp.MustCompile(`\s+`)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"&", "and",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName converts a display title into a safe file or directory
// name. Bracketed segments are dropped, slashes, backslashes, colons, and
// asterisks become dashes, ampersands spell out, other unsafe characters are
// removed, and whitespace runs collapse to single spaces.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = bracketedPattern.ReplaceAllString(name, "")
	name = fileNameReplacer.Replace(name)
	name = whitespaceRunPattern.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
