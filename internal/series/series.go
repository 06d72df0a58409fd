// Package series resolves a swimmer's race in the meet program and lists
// the heats of that race.
//
// Resolution takes two pages. The program page lists each day's races under
// a date header with their start times; the last race starting at or before
// the requested time is the one the swimmer is in, and its tooltip handler
// carries the opaque identifiers of the heat listing. The heat listing is a
// flat table where header rows open a heat and the following rows are its
// lanes.
package series

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
)

// DefaultLane is the lane highlighted when the engagement does not say.
const DefaultLane = 5

var (
	heatPattern    = regexp.MustCompile(`(?i)s[ée]rie\s*(\d+)`)
	lanePattern    = regexp.MustCompile(`(?i)couloir\s*(\d+)`)
	paramPattern   = regexp.MustCompile(`&(\w+)=\+?(\d+)`)
	numbersPattern = regexp.MustCompile(`\d+`)
)

// Scraper reads the program and heat pages.
type Scraper struct {
	base        *scraper.Base
	defaultLane int
}

// New creates a series scraper. defaultLane values outside 1..10 fall back
// to DefaultLane.
func New(base *scraper.Base, defaultLane int) *Scraper {
	if defaultLane < 1 || defaultLane > 10 {
		defaultLane = DefaultLane
	}
	return &Scraper{base: base, defaultLane: defaultLane}
}

type programQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
	Date          string `json:"date" validate:"required"`
	Time          string `json:"time" validate:"required,hhmm"`
}

// Query identifies the race whose heats a caller wants to see.
type Query struct {
	CompetitionID string
	// Race is the label used when the heat page does not name the race.
	Race string
	// Meta is the engagement's "Série 3 • Couloir 4 • 1:02.34" line.
	Meta string
	Date string
	Time string
}

// RaceMeta is what an engagement's meta line says about heat and lane.
// Zero means unknown.
type RaceMeta struct {
	Heat int
	Lane int
}

// ParseRaceMeta extracts heat and lane numbers from a meta line.
func ParseRaceMeta(meta string) RaceMeta {
	var rm RaceMeta
	if m := heatPattern.FindStringSubmatch(meta); m != nil {
		rm.Heat, _ = strconv.Atoi(m[1])
	}
	if m := lanePattern.FindStringSubmatch(meta); m != nil {
		rm.Lane, _ = strconv.Atoi(m[1])
	}
	return rm
}

func (s *Scraper) programURL(competitionID string) string {
	return s.base.Endpoints().LiveURL("programme.php", "competition", competitionID, "langue", "fra")
}

func (s *Scraper) seriesURL(competitionID string, p meet.ProgramParams) string {
	lang := p.Language
	if lang == "" {
		lang = "fra"
	}
	return s.base.Endpoints().LiveURL("programme.php",
		"competition", competitionID,
		"langue", lang,
		"alea", p.Alea,
		"cat_id", p.CategoryID,
		"epr_id", p.EventID,
		"typ_id", p.TypeID,
		"num_epreuve", p.EventNumber,
	)
}

// GetProgram finds the race running at time on date and returns the
// identifiers of its heat listing.
func (s *Scraper) GetProgram(ctx context.Context, competitionID, date, time string) (*meet.ProgramParams, error) {
	q := programQuery{CompetitionID: competitionID, Date: strings.TrimSpace(date), Time: strings.TrimSpace(time)}
	if err := scraper.Validate(q, "Paramètres de programme invalides"); err != nil {
		return nil, err
	}

	key := s.base.CacheKey("program", q.CompetitionID, q.Date, q.Time)
	params, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) (meet.ProgramParams, error) {
		doc, err := s.base.Document(ctx, s.programURL(q.CompetitionID))
		if err != nil {
			return meet.ProgramParams{}, err
		}
		onclick, ok := findSlot(doc, q.Date, q.Time)
		if !ok {
			return meet.ProgramParams{}, scraper.NotFound("Course dans le programme")
		}
		return parseOnclick(onclick)
	})
	if err != nil {
		return nil, err
	}
	return &params, nil
}

// findSlot scans the races listed under the date header and returns the
// handler of the last one starting at or before t.
func findSlot(doc *goquery.Document, date, t string) (string, bool) {
	wanted := meet.Fold(date)
	var day *goquery.Selection
	doc.Find("h6").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.Contains(meet.Fold(h.Text()), wanted) {
			day = h.NextFiltered("div")
			return false
		}
		return true
	})
	if day == nil {
		return "", false
	}

	var onclick string
	day.Find("ul.reunion li.survol").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if scraper.IsAfter(t, scraper.Text(li.Find(".time"))) < 0 {
			return false
		}
		onclick = li.Find(".tooltip").AttrOr("onclick", "")
		return true
	})
	return onclick, onclick != ""
}

// parseOnclick reads the query fragment passed as third argument of the
// tooltip handler, e.g. '&cat_id=' + 3 + '&epr_id=' + 12.
func parseOnclick(onclick string) (meet.ProgramParams, error) {
	args := strings.Split(onclick, ",")
	if len(args) < 3 {
		return meet.ProgramParams{}, scraper.ParsingError("Paramètres de course introuvables")
	}
	cleaned := strings.NewReplacer("'", "", "+", "", " ", "").Replace(args[2])

	found := make(map[string]string)
	for _, m := range paramPattern.FindAllStringSubmatch(cleaned, -1) {
		found[m[1]] = m[2]
	}
	for _, key := range []string{"cat_id", "epr_id", "typ_id", "num_epreuve"} {
		if _, ok := found[key]; !ok {
			return meet.ProgramParams{}, scraper.ParsingError(`Paramètre "` + key + `" manquant`)
		}
	}

	return meet.ProgramParams{
		CategoryID:  found["cat_id"],
		EventID:     found["epr_id"],
		TypeID:      found["typ_id"],
		EventNumber: found["num_epreuve"],
	}, nil
}

// GetAllSeries returns every heat of the race identified by params.
// Returns NotFound when the page lists no heat.
func (s *Scraper) GetAllSeries(ctx context.Context, competitionID string, params meet.ProgramParams) (*meet.SeriesList, error) {
	if err := scraper.Validate(params, "Paramètres de série invalides"); err != nil {
		return nil, err
	}

	key := s.base.CacheKey("all-series", competitionID, params)
	list, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) (meet.SeriesList, error) {
		doc, err := s.base.Document(ctx, s.seriesURL(competitionID, params))
		if err != nil {
			return meet.SeriesList{}, err
		}
		list := s.parseSeries(doc)
		if len(list.Series) == 0 {
			return meet.SeriesList{}, scraper.NotFound("Séries")
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *Scraper) parseSeries(doc *goquery.Document) meet.SeriesList {
	var (
		list    meet.SeriesList
		current *meet.Series
	)
	flush := func() {
		if current == nil || len(current.Swimmers) == 0 {
			return
		}
		if !scraper.SafeValidate(current) {
			s.base.DropRow("series", logger.Fields{"race": current.Race, "nb": current.Number})
			return
		}
		list.Series = append(list.Series, *current)
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if title := row.Find("td.prgTitre"); title.Length() > 0 {
			flush()
			current = newHeat(scraper.Text(title), scraper.Text(row.Find("td.prgTime")), len(list.Series))
			if list.Race == "" {
				list.Race = current.Race
			}
			return
		}

		if current == nil || !row.HasClass("survol") {
			return
		}
		tds := row.Find("td")
		if tds.Length() < 6 {
			return
		}
		chrono := scraper.Text(tds.Eq(5))
		if strings.Contains(chrono, "AT") {
			chrono = "AT"
		}
		lane := meet.LaneSwimmer{
			Name:        scraper.Text(tds.Eq(1)),
			Year:        scraper.Text(tds.Eq(2)),
			Nationality: scraper.Text(tds.Eq(3)),
			Club:        scraper.Text(tds.Eq(4).Find(".tooltip")),
			LastChrono:  chrono,
		}
		if !scraper.SafeValidate(lane) {
			s.base.DropRow("lane", nil)
			return
		}
		current.Swimmers = append(current.Swimmers, lane)
	})
	flush()

	list.Type = meet.SeriesSimple
	if len(list.Series) > 0 {
		if first := list.Series[0]; len(first.Swimmers) > 1 && first.Swimmers[1].LastChrono == "" {
			list.Type = meet.SeriesRelay
		}
	}
	for i := range list.Series {
		list.Series[i].Type = list.Type
	}
	return list
}

// newHeat reads a header such as "50 NL Dames - Séries - Série 2/4".
func newHeat(title, startTime string, index int) *meet.Series {
	parts := strings.Split(title, "-")
	heat := &meet.Series{
		Type: meet.SeriesSimple,
		Race: strings.TrimSpace(parts[0]),
		Time: startTime,
	}
	if len(parts) > 2 {
		nums := numbersPattern.FindAllString(parts[2], -1)
		if len(nums) > 0 {
			heat.Number = nums[0]
		}
		if len(nums) > 1 {
			heat.MaxNumber = nums[1]
		}
	}
	if heat.Number == "" {
		heat.Number = strconv.Itoa(index + 1)
	}
	return heat
}

// GetSeries resolves the race of q and returns its heats with the swimmer's
// heat and lane flagged. Any failure is logged and yields nil.
func (s *Scraper) GetSeries(ctx context.Context, q Query) *meet.SeriesView {
	if q.CompetitionID == "" || q.Date == "" || q.Time == "" {
		return nil
	}

	params, err := s.GetProgram(ctx, q.CompetitionID, q.Date, q.Time)
	if err != nil {
		s.base.Logger().Warn("program lookup failed", logger.Fields{"competition": q.CompetitionID, "error": err.Error()})
		return nil
	}
	list, err := s.GetAllSeries(ctx, q.CompetitionID, *params)
	if err != nil {
		s.base.Logger().Warn("series lookup failed", logger.Fields{"competition": q.CompetitionID, "error": err.Error()})
		return nil
	}

	return s.view(list, q)
}

func (s *Scraper) view(list *meet.SeriesList, q Query) *meet.SeriesView {
	rm := ParseRaceMeta(q.Meta)
	heatIdx := swimmerHeat(list.Series, rm.Heat, q.Time)
	lane := rm.Lane
	if lane == 0 {
		lane = s.defaultLane
	}

	race := list.Race
	if race == "" {
		race = q.Race
	}
	if race == "" {
		race = "Épreuve"
	}

	v := &meet.SeriesView{
		Race:               race,
		TotalSeries:        len(list.Series),
		SwimmerSeriesIndex: heatIdx,
		Type:               list.Type,
		Series:             make([]meet.HeatView, 0, len(list.Series)),
	}
	for i, heat := range list.Series {
		number, err := strconv.Atoi(heat.Number)
		if err != nil || number == 0 {
			number = i + 1
		}
		hv := meet.HeatView{
			SeriesNumber:    number,
			IsSwimmerSeries: i == heatIdx,
			Swimmers:        make([]meet.LaneView, 0, len(heat.Swimmers)),
		}
		for j, sw := range heat.Swimmers {
			hv.Swimmers = append(hv.Swimmers, meet.LaneView{
				Lane:       j + 1,
				Name:       sw.Name,
				Club:       sw.Club,
				EntryTime:  sw.LastChrono,
				IsSelected: hv.IsSwimmerSeries && j == lane-1,
			})
		}
		v.Series = append(v.Series, hv)
	}
	return v
}

// swimmerHeat picks the swimmer's heat: by number when the meta line gives
// one, else by start time, else the first heat.
func swimmerHeat(heats []meet.Series, number int, startTime string) int {
	if number > 0 {
		for i, h := range heats {
			if h.Number == strconv.Itoa(number) {
				return i
			}
		}
	}
	if want := scraper.FormatHours(startTime); want != "" {
		for i, h := range heats {
			if scraper.FormatHours(h.Time) == want {
				return i
			}
		}
	}
	return 0
}
