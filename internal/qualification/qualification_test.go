package qualification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/ffn-meets/internal/cache"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
)

const ageGridFixture = `<html><body>
<form><select name="idclt">
  <option value="">-- Choisir --</option>
  <option value="79" selected>France Open (été)</option>
  <option value="nat_perfs.php?idact=nat&amp;go=clt_tps&amp;idclt=81">Championnats de France Élite</option>
  <option value="79">France Open (été)</option>
</select></form>
<p>Saison : 2024 / 2025</p>
<table>
<tr><th>Épreuves</th><th colspan="2">15 ans (2010)</th><th colspan="2">16 ans (2009)</th><th colspan="2">19 ans et plus (2006 et avant)</th></tr>
<tr><td>Temps</td><td>Temps</td><td>Qualifiés</td><td>Temps</td><td>Qualifiés</td><td>Temps</td><td>Qualifiés</td></tr>
<tr><td>50 Nage Libre</td><td>28.10</td><td>40</td><td>27.80</td><td>38</td><td>27.00</td><td>60</td></tr>
<tr><td>100 Papillon</td><td>1:05.00</td><td>30</td><td></td><td></td><td>1:02.00</td><td>45</td></tr>
</table>
<table>
<tr><th>Épreuves</th><th colspan="2">15 ans (2010)</th><th colspan="2">16 ans (2009)</th><th colspan="2">19 ans et plus (2006 et avant)</th></tr>
<tr><td>50 Nage Libre</td><td>25.50</td><td>40</td><td>25.00</td><td>38</td><td>24.10</td><td>60</td></tr>
<tr><td>50 Nage Libre</td><td>25.50</td><td>40</td><td>25.00</td><td>38</td><td>24.10</td><td>60</td></tr>
</table>
</body></html>`

const eliteGridFixture = `<html><body>
<p>Saison : 2024 / 2025</p>
<table>
<tr><td>Épreuves</td><td>Temps</td><td>Qualifiés</td></tr>
<tr><td>200 4 Nages</td><td>2:20.00</td><td>16</td></tr>
<tr><td>Épreuves</td><td>Temps</td><td>Qualifiés</td></tr>
<tr><td>200 4 Nages</td><td>2:06.00</td><td>16</td></tr>
</table>
</body></html>`

func newTestScraper(t *testing.T, opts Options) (*Scraper, *[]string) {
	t.Helper()
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/nat_perfs.php" {
			http.NotFound(w, r)
			return
		}
		queries = append(queries, r.URL.RawQuery)
		switch r.URL.Query().Get("idclt") {
		case "81":
			w.Write([]byte(eliteGridFixture))
		default:
			w.Write([]byte(ageGridFixture))
		}
	}))
	t.Cleanup(server.Close)

	return New(scraper.NewBase(scraper.Options{
		Name:      "qualification",
		Endpoints: scraper.Endpoints{Live: server.URL, Archive: server.URL},
		Cache:     cache.New(),
		TTL:       time.Hour,
	}), opts), &queries
}

func intPtr(n int) *int { return &n }

func TestGetGridWithAgeBrackets(t *testing.T) {
	s, queries := newTestScraper(t, Options{})

	g, err := s.GetGrid(context.Background(), "", 0)
	require.NoError(t, err)

	assert.Equal(t, "79", g.GridID)
	assert.Equal(t, "France Open (été)", g.Name)
	assert.Equal(t, "2024 / 2025", g.Season)
	assert.Equal(t, 2025, g.SeasonYear)
	assert.Equal(t, []string{"idact=nat&go=clt_tps&idclt=79"}, *queries)

	// 3 + 2 women cells, 3 men cells; the repeated men row is a duplicate.
	require.Len(t, g.Qualifications, 8)

	first := g.Qualifications[0]
	want := meet.QualificationTime{
		Grid:       "79",
		Race:       "50 NL",
		Gender:     meet.GenderFemale,
		Age:        intPtr(15),
		BirthYear:  intPtr(2010),
		Time:       "28.10",
		Qualifiers: intPtr(40),
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("first cell mismatch (-want +got):\n%s", diff)
	}

	var men int
	for _, q := range g.Qualifications {
		if q.Gender == meet.GenderMale {
			men++
			assert.Equal(t, "50 NL", q.Race)
		}
	}
	assert.Equal(t, 3, men)
}

func TestGetGridWithoutAgeBrackets(t *testing.T) {
	s, _ := newTestScraper(t, Options{})

	g, err := s.GetGrid(context.Background(), "81", 2025)
	require.NoError(t, err)
	require.Len(t, g.Qualifications, 2)

	assert.Equal(t, meet.GenderFemale, g.Qualifications[0].Gender)
	assert.Equal(t, "2:20.00", g.Qualifications[0].Time)
	assert.Equal(t, meet.GenderMale, g.Qualifications[1].Gender)
	assert.Equal(t, "200 4N", g.Qualifications[1].Race)
	assert.Nil(t, g.Qualifications[1].Age)
	assert.Nil(t, g.Qualifications[1].BirthYear)
}

func TestGetGridSeasonInURL(t *testing.T) {
	s, queries := newTestScraper(t, Options{})

	_, err := s.GetGrid(context.Background(), "81", 2024)
	require.NoError(t, err)
	assert.Equal(t, []string{"idact=nat&go=clt_tps&idsai=2024&idclt=81"}, *queries)
}

func TestGenderOrderIsConfigurable(t *testing.T) {
	s, _ := newTestScraper(t, Options{GenderOrder: []meet.Gender{meet.GenderMale, meet.GenderFemale}})

	g, err := s.GetGrid(context.Background(), "81", 0)
	require.NoError(t, err)
	require.Len(t, g.Qualifications, 2)
	assert.Equal(t, meet.GenderMale, g.Qualifications[0].Gender)
	assert.Equal(t, "2:20.00", g.Qualifications[0].Time)
}

func TestGetQualificationTime(t *testing.T) {
	s, _ := newTestScraper(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name     string
		lookup   Lookup
		wantTime string
	}{
		{"exact birth year", Lookup{Race: "50 NL", Gender: "F", BirthYear: 2009}, "27.80"},
		{"long race name", Lookup{Race: "50 Nage Libre Dames", Gender: "F", BirthYear: 2010}, "28.10"},
		{"year minus one", Lookup{Race: "50 NL", Gender: "F", BirthYear: 2011}, "28.10"},
		{"oldest bracket", Lookup{Race: "50 NL", Gender: "F", BirthYear: 1990}, "27.00"},
		{"oldest bracket boundary", Lookup{Race: "50 NL", Gender: "M", BirthYear: 2006}, "24.10"},
		{"men", Lookup{Race: "50 NL", Gender: "M", BirthYear: 2010}, "25.50"},
		{"age", Lookup{Race: "100 Papillon", Gender: "F", Age: 15}, "1:05.00"},
		{"age clamps", Lookup{Race: "100 Pap", Gender: "F", Age: 34}, "1:02.00"},
		{"no brackets", Lookup{Grid: "81", Race: "200 4N", Gender: "M", BirthYear: 2012}, "2:06.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := s.GetQualificationTime(ctx, tt.lookup)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTime, q.Time)
		})
	}
}

func TestGetQualificationTimeNotFound(t *testing.T) {
	s, _ := newTestScraper(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name   string
		lookup Lookup
	}{
		{"bracket gap", Lookup{Race: "100 Pap", Gender: "F", BirthYear: 2008}},
		{"too young", Lookup{Race: "50 NL", Gender: "F", BirthYear: 2014}},
		{"unknown race", Lookup{Race: "1500 NL", Gender: "F", BirthYear: 2010}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.GetQualificationTime(ctx, tt.lookup)
			require.Error(t, err)
			assert.True(t, scraper.IsKind(err, scraper.KindNotFound))
		})
	}
}

func TestGetQualificationTimeValidation(t *testing.T) {
	s, queries := newTestScraper(t, Options{})
	ctx := context.Background()

	for _, l := range []Lookup{
		{Race: "50 NL", Gender: "X", BirthYear: 2010},
		{Race: "50 NL", Gender: "F"},
		{Gender: "F", BirthYear: 2010},
	} {
		_, err := s.GetQualificationTime(ctx, l)
		require.Error(t, err)
		assert.True(t, scraper.IsKind(err, scraper.KindValidation))
	}
	assert.Empty(t, *queries)
}

func TestGetQualificationsForAge(t *testing.T) {
	s, _ := newTestScraper(t, Options{})

	got, err := s.GetQualificationsForAge(context.Background(), Lookup{Gender: "F", BirthYear: 2000})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, q := range got {
		assert.Equal(t, OldestAge, *q.Age)
	}
}

func TestGetRaces(t *testing.T) {
	s, _ := newTestScraper(t, Options{})

	races, err := s.GetRaces(context.Background(), "79", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"100 Pap", "50 NL"}, races)
}

func TestGetAvailableEvents(t *testing.T) {
	s, _ := newTestScraper(t, Options{})

	events, err := s.GetAvailableEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "france-open-ete", events[0].Slug)
	assert.Equal(t, "79", events[0].ID)
	assert.Equal(t, "Championnats de France Élite", events[1].Name)
	assert.Equal(t, "81", events[1].ID)
	assert.Contains(t, events[1].URL, "/nat_perfs.php?idact=nat&go=clt_tps&idclt=81")
}
