// Package calendar exports a swimmer timeline as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
)

// RaceDuration is the length given to each race event.
const RaceDuration = 15 * time.Minute

// GenerateICS renders the races of a timeline, one VEVENT each. Day labels
// are dated against the competition start. Races without a start time
// become all-day events; races whose day cannot be dated are left out.
func GenerateICS(comp meet.Competition, engagements []meet.Engagement) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//FFN Meets//ffn-meets//FR\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if comp.Name != "" {
		ics.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICS(comp.Name)))
	}

	stamp := formatICSTime(time.Now().UTC())
	for _, e := range engagements {
		if e.Kind != meet.KindRace {
			continue
		}
		day, ok := meet.ResolveDayLabel(e.Date, comp.StartDate)
		if !ok {
			continue
		}

		ics.WriteString("BEGIN:VEVENT\r\n")
		ics.WriteString(fmt.Sprintf("UID:%s@ffn-meets\r\n", e.ID))
		ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", stamp))

		if e.Time == "" {
			ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", day.Format("20060102")))
			ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", day.AddDate(0, 0, 1).Format("20060102")))
		} else {
			// Floating local time: the venue's clock.
			start := day.Add(time.Duration(scraper.ParseHours(e.Time)) * time.Minute)
			ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatLocalTime(start)))
			ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatLocalTime(start.Add(RaceDuration))))
		}

		summary := e.Label
		if comp.Name != "" {
			summary = fmt.Sprintf("%s - %s", e.Label, comp.Name)
		}
		ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(summary)))
		if e.Meta != "" {
			ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(e.Meta)))
		}
		if comp.Location != "" {
			ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(comp.Location)))
		}
		ics.WriteString("STATUS:CONFIRMED\r\n")
		ics.WriteString("TRANSP:OPAQUE\r\n")
		ics.WriteString("END:VEVENT\r\n")
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func formatLocalTime(t time.Time) string {
	return t.Format("20060102T150405")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// RFC 5545 text escaping
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
