package meet

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips diacritics and collapses whitespace.
// "Après-midi  Dames" becomes "apres-midi dames".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Slug turns a label into a kebab-case identifier.
// "50 Nage Libre Dames" becomes "50-nage-libre-dames".
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range Fold(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// strokeAbbreviations maps folded stroke names to the short labels used
// across the live site.
var strokeAbbreviations = []struct {
	name  string
	short string
}{
	{"nage libre", "NL"},
	{"4 nages", "4N"},
	{"papillon", "Pap"},
	{"brasse", "Br"},
	{"dos", "Dos"},
}

// RaceLabel normalises a race name such as "50 Nage Libre" or "50 NL Dames"
// to its short form "50 NL". Unknown strokes are returned trimmed.
func RaceLabel(name string) string {
	folded := Fold(name)
	folded = strings.TrimSuffix(strings.TrimSuffix(folded, " dames"), " messieurs")
	for _, a := range strokeAbbreviations {
		if strings.HasSuffix(folded, " "+a.name) {
			return strings.TrimSpace(strings.TrimSuffix(folded, a.name)) + " " + a.short
		}
		if strings.HasSuffix(folded, " "+strings.ToLower(a.short)) {
			return strings.TrimSpace(strings.TrimSuffix(folded, strings.ToLower(a.short))) + " " + a.short
		}
	}
	return strings.TrimSpace(name)
}
