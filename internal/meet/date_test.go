package meet

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     time.Time
		wantZero bool
	}{
		{name: "valid", text: "18/12/2025", want: time.Date(2025, time.December, 18, 0, 0, 0, 0, time.UTC)},
		{name: "leading zeros", text: "01/02/2026", want: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{name: "impossible day", text: "31/02/2026", wantZero: true},
		{name: "garbage", text: "demain", wantZero: true},
		{name: "empty", text: "", wantZero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.text)
			if tt.wantZero {
				if !got.IsZero() {
					t.Errorf("ParseDate(%q) = %v, expected zero time", tt.text, got)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, expected %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractDates(t *testing.T) {
	dates := ExtractDates("Du 18/12/2025 au 21/12/2025 - bassin 50m, 31/02/2025 ignoré")
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d (%v)", len(dates), dates)
	}
	if dates[0].Day() != 18 || dates[1].Day() != 21 {
		t.Errorf("unexpected dates: %v", dates)
	}

	if got := ExtractDates("pas de date"); len(got) != 0 {
		t.Errorf("expected no dates, got %v", got)
	}
}

func TestSeasonYear(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2024, time.August, 31, 0, 0, 0, 0, time.UTC), 2024},
		{time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), 2025},
	}

	for _, tt := range tests {
		t.Run(tt.date.Format("2006-01-02"), func(t *testing.T) {
			if got := SeasonYear(tt.date); got != tt.want {
				t.Errorf("SeasonYear(%v) = %d, expected %d", tt.date, got, tt.want)
			}
		})
	}
}

func TestResolveDayLabel(t *testing.T) {
	ref := time.Date(2025, 12, 16, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		label string
		want  time.Time
		ok    bool
	}{
		{"Jeudi 18 Décembre", time.Date(2025, 12, 18, 0, 0, 0, 0, time.UTC), true},
		{"vendredi 2 janvier", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"Samedi 16 Août", time.Date(2025, 8, 16, 0, 0, 0, 0, time.UTC), true},
		{"Mardi 31 Février", time.Time{}, false},
		{"Jeudi", time.Time{}, false},
		{"Jeudi 18 Brumaire", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ResolveDayLabel(tt.label, ref)
			if ok != tt.ok || !got.Equal(tt.want) {
				t.Errorf("ResolveDayLabel(%q) = %v, %v; want %v, %v", tt.label, got, ok, tt.want, tt.ok)
			}
		})
	}
}
