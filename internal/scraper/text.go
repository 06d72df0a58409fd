package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParseHours converts "08h55" or "08:55" to minutes since midnight.
// Unparsable input counts as midnight.
func ParseHours(s string) int {
	m := hhmmPattern.FindStringSubmatch(strings.TrimSpace(strings.ToLower(s)))
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return h*60 + mins
}

// IsAfter returns a positive number when a is later than b, zero when both
// are equal and a negative number otherwise.
func IsAfter(a, b string) int {
	return ParseHours(a) - ParseHours(b)
}

// FormatHours normalises "8h05" or "08:05" to "08:05".
// Returns "" for unparsable input.
func FormatHours(s string) string {
	m := hhmmPattern.FindStringSubmatch(strings.TrimSpace(strings.ToLower(s)))
	if m == nil {
		return ""
	}
	h, _ := strconv.Atoi(m[1])
	return twoDigits(h) + ":" + m[2]
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// SplitName splits a "NOM Prénom" label. Leading all-upper-case tokens form
// the last name. A single token is a first name. Without an upper-case
// prefix the final token is the last name; when every token is upper-case
// the final token is the first name.
func SplitName(label string) (first, last string) {
	tokens := strings.Fields(label)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	}

	n := 0
	for n < len(tokens) && isUpperToken(tokens[n]) {
		n++
	}
	switch n {
	case 0:
		return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1]
	case len(tokens):
		return tokens[len(tokens)-1], strings.Join(tokens[:len(tokens)-1], " ")
	}
	return strings.Join(tokens[n:], " "), strings.Join(tokens[:n], " ")
}

func isUpperToken(tok string) bool {
	hasLetter := false
	for _, r := range tok {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// NormalizeSpace trims s and collapses internal whitespace runs.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam returns the value of name in href's query string.
func QueryParam(href, name string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return u.Query().Get(name)
}

// AbsoluteURL resolves ref against base. ref is returned unchanged when
// either cannot be parsed.
func AbsoluteURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// OwnText returns the text of sel's direct text children, ignoring nested
// elements such as tooltips.
func OwnText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return NormalizeSpace(b.String())
}

// FirstText returns the first non-blank direct text child of sel.
func FirstText(sel *goquery.Selection) string {
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.TextNode {
				continue
			}
			if t := NormalizeSpace(c.Data); t != "" {
				return t
			}
		}
	}
	return ""
}

// Text returns sel's normalised text content.
func Text(sel *goquery.Selection) string {
	return NormalizeSpace(sel.Text())
}

var digitsPattern = regexp.MustCompile(`\d+`)

// LeadingInt parses the leading digits of s, so "12." yields 12.
func LeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	loc := digitsPattern.FindStringIndex(s)
	if loc == nil || loc[0] != 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:loc[1]])
	return n, err == nil
}
