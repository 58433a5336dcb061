package orchestrator

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxFilenameLength = 80
	fallbackFilename  = "download"
)

var (
	disallowedFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_\s.\-]`)
	filenameWhitespace      = regexp.MustCompile(`\s+`)
)

// SanitizeFilename turns a media title into a safe file name and appends ext.
// Accents are folded to their base letters and anything outside ASCII letters,
// digits, dot, hyphen and underscore is dropped. Every whitespace run, including
// one at either edge, becomes a single underscore, and the stem is cut to 80
// characters. The extension goes through the same filter.
func SanitizeFilename(title, ext string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	stem := disallowedFilenameChars.ReplaceAllString(folded, "")
	stem = filenameWhitespace.ReplaceAllString(stem, "_")
	if r := []rune(stem); len(r) > maxFilenameLength {
		stem = string(r[:maxFilenameLength])
	}
	if stem == "" {
		stem = fallbackFilename
	}

	ext = disallowedFilenameChars.ReplaceAllString(ext, "")
	ext = strings.TrimLeft(filenameWhitespace.ReplaceAllString(ext, ""), ".")
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}
