// Package qualification reads national qualification grids from the
// federation archive site.
//
// A grid page holds one or more tables. Each header row opens a gender
// section; sections appear in a fixed order that the page never labels, so
// the order is configurable. Headers either list age brackets, each followed
// by a time and a qualifier count, or nothing, in which case the section has
// a single time column.
package qualification

import (
	"context"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
)

const (
	// DefaultGrid is the France Open summer grid.
	DefaultGrid = "79"
	// DefaultTTL applies when the base has no scraper-specific TTL.
	DefaultTTL = time.Hour
	// OldestAge is the age of the open "and over" bracket.
	OldestAge = 19
)

// DefaultGenderOrder is the section order of grid pages.
var DefaultGenderOrder = []meet.Gender{meet.GenderFemale, meet.GenderMale}

var (
	seasonPattern = regexp.MustCompile(`Saison\s*:\s*(\d{4})\s*/\s*(\d{4})`)
	agePattern    = regexp.MustCompile(`(\d+)\s*ans.*?\((\d{4})`)
)

// Options configures a Scraper.
type Options struct {
	// Grid is used when a lookup names none.
	Grid        string
	GenderOrder []meet.Gender
}

// Scraper reads qualification grids.
type Scraper struct {
	base        *scraper.Base
	grid        string
	genderOrder []meet.Gender
}

// New creates a qualification scraper.
func New(base *scraper.Base, opts Options) *Scraper {
	if opts.Grid == "" {
		opts.Grid = DefaultGrid
	}
	if len(opts.GenderOrder) == 0 {
		opts.GenderOrder = DefaultGenderOrder
	}
	return &Scraper{base: base, grid: opts.Grid, genderOrder: opts.GenderOrder}
}

func (s *Scraper) gridURL(grid string, season int) string {
	params := []string{"idact", "nat", "go", "clt_tps"}
	if season > 0 {
		params = append(params, "idsai", strconv.Itoa(season))
	}
	params = append(params, "idclt", grid)
	return s.base.Endpoints().ArchiveURL("nat_perfs.php", params...)
}

// GetGrid returns a grid for the season ending in season. Zero asks the
// site for its latest season.
func (s *Scraper) GetGrid(ctx context.Context, grid string, season int) (*meet.QualificationGrid, error) {
	if grid == "" {
		grid = s.grid
	}

	key := s.base.CacheKey("qualification-grid", grid, season)
	cached, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) (*meet.QualificationGrid, error) {
		doc, err := s.base.Document(ctx, s.gridURL(grid, season))
		if err != nil {
			return nil, err
		}
		g := &meet.QualificationGrid{
			GridID:         grid,
			Name:           scraper.Text(doc.Find("select option[selected]").First()),
			Qualifications: s.parse(doc, grid),
		}
		if m := seasonPattern.FindStringSubmatch(doc.Text()); m != nil {
			g.Season = m[1] + " / " + m[2]
			g.SeasonYear, _ = strconv.Atoi(m[2])
		}
		if g.SeasonYear == 0 {
			g.SeasonYear = season
			if season == 0 {
				g.SeasonYear = meet.SeasonYear(time.Now())
			}
			g.Season = strconv.Itoa(g.SeasonYear-1) + " / " + strconv.Itoa(g.SeasonYear)
		}
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	out := *cached
	out.Qualifications = slices.Clone(cached.Qualifications)
	return &out, nil
}

type bracket struct {
	age       int
	birthYear int
}

func parseBracket(header string) (bracket, bool) {
	m := agePattern.FindStringSubmatch(header)
	if m == nil {
		return bracket{}, false
	}
	age, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	return bracket{age: age, birthYear: year}, true
}

func isHeaderRow(row *goquery.Selection) bool {
	if row.ChildrenFiltered("th").Length() > 0 {
		return true
	}
	return meet.Fold(scraper.Text(row.ChildrenFiltered("td").First())) == "epreuves"
}

// parse walks every table row in document order. The header counter spans
// the whole page so sections split across tables keep their order.
func (s *Scraper) parse(doc *goquery.Document, grid string) []meet.QualificationTime {
	out := make([]meet.QualificationTime, 0)
	seen := make(map[string]bool)

	headers := 0
	var brackets []bracket
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if isHeaderRow(row) {
			headers++
			brackets = brackets[:0]
			row.Children().Slice(1, goquery.ToEnd).Each(func(_ int, cell *goquery.Selection) {
				if b, ok := parseBracket(scraper.Text(cell)); ok {
					brackets = append(brackets, b)
				}
			})
			return
		}
		if headers == 0 || headers > len(s.genderOrder) {
			return
		}
		gender := s.genderOrder[headers-1]

		cells := row.ChildrenFiltered("td")
		name := scraper.Text(cells.First())
		if cells.Length() < 2 || name == "" {
			return
		}
		race := meet.RaceLabel(name)

		add := func(q meet.QualificationTime) {
			if q.Time == "" || strings.Contains(q.Time, "Temps") || seen[q.Key()] {
				return
			}
			if !scraper.SafeValidate(q) {
				s.base.DropRow("qualification", logger.Fields{"race": q.Race, "time": q.Time})
				return
			}
			seen[q.Key()] = true
			out = append(out, q)
		}

		if len(brackets) == 0 {
			add(meet.QualificationTime{
				Grid:       grid,
				Race:       race,
				Gender:     gender,
				Time:       scraper.Text(cells.Eq(1)),
				Qualifiers: count(cells.Eq(2)),
			})
			return
		}
		for i, b := range brackets {
			age, year := b.age, b.birthYear
			add(meet.QualificationTime{
				Grid:       grid,
				Race:       race,
				Gender:     gender,
				Age:        &age,
				BirthYear:  &year,
				Time:       scraper.Text(cells.Eq(1 + 2*i)),
				Qualifiers: count(cells.Eq(2 + 2*i)),
			})
		}
	})
	return out
}

func count(cell *goquery.Selection) *int {
	n, ok := scraper.LeadingInt(scraper.Text(cell))
	if !ok {
		return nil
	}
	return &n
}

// Lookup selects grid cells. Either BirthYear or Age is required; BirthYear
// wins when both are set. Zero Season means the latest one.
type Lookup struct {
	Grid      string      `json:"grid"`
	Race      string      `json:"race"`
	Gender    meet.Gender `json:"gender" validate:"gender"`
	BirthYear int         `json:"birthYear" validate:"required_without=Age"`
	Age       int         `json:"age" validate:"omitempty,min=1,max=99"`
	Season    int         `json:"season" validate:"omitempty,gte=2000"`
}

// GetQualificationTime returns the grid cell for one race.
//
// Birth years resolve to the exact bracket, then the bracket one year
// younger, then the oldest bracket when the swimmer is at least that old.
// Ages above OldestAge use the oldest bracket. Sections without brackets
// match any swimmer.
func (s *Scraper) GetQualificationTime(ctx context.Context, l Lookup) (*meet.QualificationTime, error) {
	if err := scraper.Validate(l, "Paramètres de qualification invalides"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(l.Race) == "" {
		return nil, scraper.Invalid("Épreuve requise", nil)
	}

	g, err := s.GetGrid(ctx, l.Grid, l.Season)
	if err != nil {
		return nil, err
	}
	race := meet.Fold(meet.RaceLabel(l.Race))
	matches := resolve(g.Qualifications, l, func(q meet.QualificationTime) bool {
		return meet.Fold(q.Race) == race
	})
	if len(matches) == 0 {
		return nil, scraper.NotFound("Temps de qualification")
	}
	q := matches[0]
	return &q, nil
}

// GetQualificationsForAge returns every cell that applies to a swimmer,
// using the same resolution as GetQualificationTime.
func (s *Scraper) GetQualificationsForAge(ctx context.Context, l Lookup) ([]meet.QualificationTime, error) {
	if err := scraper.Validate(l, "Paramètres de qualification invalides"); err != nil {
		return nil, err
	}

	g, err := s.GetGrid(ctx, l.Grid, l.Season)
	if err != nil {
		return nil, err
	}
	return resolve(g.Qualifications, l, func(meet.QualificationTime) bool { return true }), nil
}

func resolve(all []meet.QualificationTime, l Lookup, keep func(meet.QualificationTime) bool) []meet.QualificationTime {
	var pool []meet.QualificationTime
	for _, q := range all {
		if q.Gender == l.Gender && keep(q) {
			pool = append(pool, q)
		}
	}

	pick := func(match func(meet.QualificationTime) bool) []meet.QualificationTime {
		var out []meet.QualificationTime
		for _, q := range pool {
			if q.BirthYear == nil || match(q) {
				out = append(out, q)
			}
		}
		return out
	}
	oldest := func(q meet.QualificationTime) bool { return q.Age != nil && *q.Age >= OldestAge }

	if l.BirthYear > 0 {
		if out := pick(func(q meet.QualificationTime) bool { return *q.BirthYear == l.BirthYear }); len(out) > 0 {
			return out
		}
		if out := pick(func(q meet.QualificationTime) bool { return *q.BirthYear == l.BirthYear-1 }); len(out) > 0 {
			return out
		}
		return pick(func(q meet.QualificationTime) bool { return oldest(q) && l.BirthYear <= *q.BirthYear })
	}

	target := min(l.Age, OldestAge)
	return pick(func(q meet.QualificationTime) bool {
		if target >= OldestAge {
			return oldest(q)
		}
		return q.Age != nil && *q.Age == target
	})
}

// GetRaces returns the sorted distinct race labels of a grid.
func (s *Scraper) GetRaces(ctx context.Context, grid string, season int) ([]string, error) {
	g, err := s.GetGrid(ctx, grid, season)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	races := make([]string, 0)
	for _, q := range g.Qualifications {
		if !seen[q.Race] {
			seen[q.Race] = true
			races = append(races, q.Race)
		}
	}
	sort.Strings(races)
	return races, nil
}

// GetAvailableEvents lists the grids offered by the archive site's grid
// selector.
func (s *Scraper) GetAvailableEvents(ctx context.Context) ([]meet.GridEvent, error) {
	key := s.base.CacheKey("qualification-events")
	cached, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) ([]meet.GridEvent, error) {
		doc, err := s.base.Document(ctx, s.gridURL(s.grid, 0))
		if err != nil {
			return nil, err
		}
		events := make([]meet.GridEvent, 0)
		seen := make(map[string]bool)
		doc.Find("select option").Each(func(_ int, opt *goquery.Selection) {
			id := gridID(opt.AttrOr("value", ""))
			name := scraper.Text(opt)
			if id == "" || seen[id] {
				return
			}
			e := meet.GridEvent{
				Slug: meet.Slug(name),
				ID:   id,
				Name: name,
				URL:  s.gridURL(id, 0),
			}
			if !scraper.SafeValidate(e) {
				s.base.DropRow("grid-event", logger.Fields{"id": id, "name": name})
				return
			}
			seen[id] = true
			events = append(events, e)
		})
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(cached), nil
}

// gridID accepts either a bare id or a link carrying idclt.
func gridID(value string) string {
	value = strings.TrimSpace(value)
	if id := scraper.QueryParam(value, "idclt"); id != "" {
		return id
	}
	if _, err := strconv.Atoi(value); err == nil {
		return value
	}
	return ""
}
