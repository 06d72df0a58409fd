package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/ffn-meets/internal/meet"
)

var testComp = meet.Competition{
	ID:        "90000",
	Name:      "Championnats de France, Élite",
	Location:  "Rennes",
	StartDate: time.Date(2025, 12, 16, 0, 0, 0, 0, time.UTC),
}

var testTimeline = []meet.Engagement{
	{ID: "session:90000:111:Jeudi_18_D_cembre:matin", Kind: meet.KindSession, Time: "08:55", Label: "Jeudi matin", Date: "Jeudi 18 Décembre"},
	{ID: "race:90000:111:Jeudi_18_D_cembre:08h55:50_nl", Kind: meet.KindRace, Time: "08:55", Label: "50 nl", Meta: "série 4 • couloir 8", Date: "Jeudi 18 Décembre"},
	{ID: "race:90000:111:Vendredi_19_D_cembre:400_nl", Kind: meet.KindRace, Label: "400 nl", Date: "Vendredi 19 Décembre"},
	{ID: "race:90000:111:bad", Kind: meet.KindRace, Time: "10:00", Label: "200 dos", Date: "Jour inconnu"},
}

func TestGenerateICS(t *testing.T) {
	ics := GenerateICS(testComp, testTimeline)

	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//FFN Meets//ffn-meets//FR",
		"X-WR-CALNAME:Championnats de France\\, Élite",
		"UID:race:90000:111:Jeudi_18_D_cembre:08h55:50_nl@ffn-meets",
		"DTSTAMP:",
		"DTSTART:20251218T085500",
		"DTEND:20251218T091000",
		"SUMMARY:50 nl - Championnats de France\\, Élite",
		"DESCRIPTION:série 4 • couloir 8",
		"LOCATION:Rennes",
		"DTSTART;VALUE=DATE:20251219",
		"DTEND;VALUE=DATE:20251220",
		"END:VCALENDAR",
	}
	for _, field := range requiredFields {
		if !strings.Contains(ics, field) {
			t.Errorf("ICS missing field: %s", field)
		}
	}

	if n := strings.Count(ics, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("expected 2 events (sessions and undatable races skipped), got %d", n)
	}
	if strings.Contains(ics, "Jeudi matin") {
		t.Error("sessions must not become events")
	}
	if !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Error("ICS should use \\r\\n line endings")
	}
}

func TestGenerateICSEmptyTimeline(t *testing.T) {
	ics := GenerateICS(meet.Competition{}, nil)

	if strings.Contains(ics, "BEGIN:VEVENT") {
		t.Error("expected no events")
	}
	if strings.Contains(ics, "X-WR-CALNAME") {
		t.Error("unnamed competition should not set a calendar name")
	}
}

func TestEscapeICS(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"a, b", "a\\, b"},
		{"a; b", "a\\; b"},
		{"line\nbreak", "line\\nbreak"},
		{"back\\slash", "back\\\\slash"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeICS(tt.input); got != tt.expected {
				t.Errorf("escapeICS(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
