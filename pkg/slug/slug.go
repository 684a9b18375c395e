package slug

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmpty is returned by Make when the text has no alphanumeric content.
var ErrEmpty = errors.New("slug: text has no alphanumeric characters")

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that carry no combining mark and therefore survive NFKD untouched.
var letterReplacer = strings.NewReplacer(
	"ı", "i", "İ", "i",
	"ß", "ss", "ẞ", "ss",
	"æ", "ae", "Æ", "ae",
	"ø", "o", "Ø", "o",
	"ł", "l", "Ł", "l",
	"đ", "d", "Đ", "d",
	"œ", "oe", "Œ", "oe",
	"þ", "th", "Þ", "th",
)

// Generate creates a URL-friendly slug from the given text.
// Accented letters are folded to their ASCII base.
//
// Examples:
//   - "Kadın Giyim" → "kadin-giyim"
//   - "Crème Brûlée" → "creme-brulee"
//   - "Hello   World!" → "hello-world"
func Generate(text string) string {
	s := letterReplacer.Replace(text)

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	s = strings.ToLower(s)
	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Make is Generate for identifiers that must not be empty.
func Make(text string) (string, error) {
	s := Generate(text)
	if s == "" {
		return "", ErrEmpty
	}
	return s, nil
}
