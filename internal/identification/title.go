package identification

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	whitespacePattern   = regexp.MustCompile(`\s+`)
	discNoisePattern    = regexp.MustCompile(`(?i)\b(?:disc|disk|dvd|blu[- ]?ray|bd|cd|side|vol(?:ume)?)\s*[0-9ivxlcdm]*\b`)
	formatNoisePattern  = regexp.MustCompile(`(?i)\b(?:widescreen|ws|fullscreen|fs|special\s+edition|extended\s+edition|collectors\s+edition|16x9|4x3|ntsc|pal)\b`)
	trailingYearPattern = regexp.MustCompile(`\s*(?:\(|\b)(\d{4})\)?\s*$`)
)

var separatorReplacer = strings.NewReplacer("_", " ", "-", " ", ".", " ", "–", " ")

var titleCaser = cases.Title(language.Und)

// FromLabel derives a presentable title and an optional four-digit year from
// a raw disc label. Separator runs collapse to single spaces, disc counters
// and format descriptors are dropped, and the remainder is title-cased. The
// year is returned as a string to match its storage form; it is empty when
// the label carries none.
func FromLabel(label string) (title, year string) {
	cleaned := strings.TrimSpace(label)
	if cleaned == "" {
		return "", ""
	}

	base, year := splitTrailingYear(separatorReplacer.Replace(cleaned))
	base = strings.TrimSpace(whitespacePattern.ReplaceAllString(base, " "))

	cleaned = discNoisePattern.ReplaceAllString(base, " ")
	cleaned = formatNoisePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		// Noise removal ate the whole label; better shouty than blank.
		return base, year
	}
	return titleCaser.String(cleaned), year
}

// splitTrailingYear strips a trailing plausible release year from the value.
// Bare four-digit groups that cannot be a release year (track counts, "0000")
// stay in the title.
func splitTrailingYear(value string) (string, string) {
	trimmed := strings.TrimSpace(value)
	matches := trailingYearPattern.FindStringSubmatch(trimmed)
	if len(matches) != 2 {
		return trimmed, ""
	}
	parsed, err := strconv.Atoi(matches[1])
	if err != nil || parsed < 1880 || parsed > 2100 {
		return trimmed, ""
	}
	remainder := strings.TrimSpace(trailingYearPattern.ReplaceAllString(trimmed, ""))
	if remainder == "" {
		return trimmed, ""
	}
	return remainder, matches[1]
}

// Display renders the canonical presentation form of a title/year pair:
// "Title (Year)" when a real year is known, the bare title otherwise. The
// zero-year sentinel "0000" counts as unknown. Titles that already carry the
// year suffix are returned unchanged.
func Display(title, year string) string {
	title = strings.TrimSpace(title)
	year = strings.TrimSpace(year)
	if title == "" {
		return ""
	}
	if year == "" || year == "0000" {
		return title
	}
	if strings.HasSuffix(title, "("+year+")") {
		return title
	}
	return title + " (" + year + ")"
}
