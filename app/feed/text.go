package feed

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/unicode/norm"
)

const (
	ShortDescriptionLimit = 280
	MaxFileNameLength     = 200
)

var (
	tagPattern          = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
	illegalFileNameChar = regexp.MustCompile(`[\\/:*?"<>|#^\[\]\x00-\x1f]`)
)

// DecodeText decodes HTML entities (named, decimal and hex references) and trims.
func DecodeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

// ShortDescription strips tags, collapses whitespace and truncates to
// ShortDescriptionLimit runes including a three character ellipsis.
func ShortDescription(s string) string {
	stripped := tagPattern.ReplaceAllString(s, " ")
	stripped = strings.TrimSpace(whitespacePattern.ReplaceAllString(stripped, " "))

	runes := []rune(stripped)
	if len(runes) > ShortDescriptionLimit {
		return string(runes[:ShortDescriptionLimit-3]) + "..."
	}
	return stripped
}

// SanitizeFileName makes s safe to use as a file name inside the vault.
func SanitizeFileName(s string) string {
	name := norm.NFC.String(s)
	name = illegalFileNameChar.ReplaceAllString(name, " - ")
	name = whitespacePattern.ReplaceAllString(name, " ")
	name = strings.Trim(name, " -.")

	runes := []rune(name)
	if len(runes) > MaxFileNameLength {
		name = strings.TrimRight(string(runes[:MaxFileNameLength]), " -.")
	}
	return name
}

// ParsePubDate parses a publish date string in the local time zone.
func ParsePubDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
