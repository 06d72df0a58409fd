package meet

import (
	"regexp"
	"strconv"
	"time"
)

var datePattern = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)

// ParseDate parses a "dd/mm/yyyy" date as UTC midnight.
// Returns the zero time if parsing fails.
func ParseDate(text string) time.Time {
	t, err := time.Parse("02/01/2006", text)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ExtractDates returns every "dd/mm/yyyy" date found in text, in order.
// Impossible dates such as 31/02 are skipped.
func ExtractDates(text string) []time.Time {
	var dates []time.Time
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day || int(t.Month()) != month {
			continue
		}
		dates = append(dates, t)
	}
	return dates
}

// SeasonYear returns the closing year of the swimming season containing t.
// Seasons start in September, so 2024-10-01 belongs to season 2025.
func SeasonYear(t time.Time) int {
	if t.Month() >= time.September {
		return t.Year() + 1
	}
	return t.Year()
}

var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"fevrier":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"aout":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"decembre":  time.December,
}

var dayLabelPattern = regexp.MustCompile(`(\d{1,2})\s+([a-z]+)`)

// ResolveDayLabel dates a startlist label such as "Jeudi 18 Décembre". The
// year comes from ref, usually the competition start; a day more than six
// months before ref is taken to be in the following year.
func ResolveDayLabel(label string, ref time.Time) (time.Time, bool) {
	m := dayLabelPattern.FindStringSubmatch(Fold(label))
	if m == nil {
		return time.Time{}, false
	}
	month, ok := frenchMonths[m[2]]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])

	t := time.Date(ref.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	if ref.Sub(t) > 183*24*time.Hour {
		t = t.AddDate(1, 0, 0)
	}
	return t, true
}
