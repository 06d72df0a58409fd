// Package results reads race result sheets.
package results

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
)

var (
	headerDatePattern = regexp.MustCompile(`\(([^)]+)\)`)
	pointsPattern     = regexp.MustCompile(`(\d+)\s*pts`)
	racePattern       = regexp.MustCompile(`epreuve=(\d+)`)
)

// Scraper reads result pages of the live site.
type Scraper struct {
	base *scraper.Base
}

// New creates a results scraper.
func New(base *scraper.Base) *Scraper {
	return &Scraper{base: base}
}

type competitionQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
}

type raceQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
	RaceID        string `json:"raceId" validate:"required"`
}

type swimmerQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
	RaceID        string `json:"raceId" validate:"required"`
	SwimmerID     string `json:"swimmerId" validate:"required"`
}

func (s *Scraper) raceURL(competitionID, raceID string) string {
	return s.base.Endpoints().LiveURL("resultats.php",
		"competition", competitionID,
		"langue", "fra",
		"go", "epreuve",
		"epreuve", raceID,
	)
}

// GetByRace returns the result sheet of one race.
func (s *Scraper) GetByRace(ctx context.Context, competitionID, raceID string) (*meet.RaceResults, error) {
	q := raceQuery{CompetitionID: competitionID, RaceID: raceID}
	if err := scraper.Validate(q, "Paramètres de résultats invalides"); err != nil {
		return nil, err
	}

	key := s.base.CacheKey("race-results", competitionID, raceID)
	cached, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) (*meet.RaceResults, error) {
		doc, err := s.base.OpenDocument(ctx, s.raceURL(competitionID, raceID))
		if err != nil {
			return nil, err
		}
		res := s.parse(doc)
		res.CompetitionID = competitionID
		res.RaceID = raceID
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	out := *cached
	out.Results = slices.Clone(cached.Results)
	return &out, nil
}

// GetBySwimmer returns a race sheet together with one swimmer's line.
// Swimmer is nil when the swimmer did not take part.
func (s *Scraper) GetBySwimmer(ctx context.Context, competitionID, raceID, swimmerID string) (*meet.SwimmerResult, error) {
	q := swimmerQuery{CompetitionID: competitionID, RaceID: raceID, SwimmerID: swimmerID}
	if err := scraper.Validate(q, "Paramètres de résultats invalides"); err != nil {
		return nil, err
	}

	race, err := s.GetByRace(ctx, competitionID, raceID)
	if err != nil {
		return nil, err
	}
	out := &meet.SwimmerResult{Race: race}
	for i := range race.Results {
		if race.Results[i].SwimmerID == swimmerID {
			entry := race.Results[i]
			out.Swimmer = &entry
			break
		}
	}
	return out, nil
}

// ListRaces returns the races offered by the result page selector, in page
// order.
func (s *Scraper) ListRaces(ctx context.Context, competitionID string) ([]meet.Race, error) {
	if err := scraper.Validate(competitionQuery{CompetitionID: competitionID}, "CompetId invalide"); err != nil {
		return nil, err
	}

	key := s.base.CacheKey("races", competitionID)
	cached, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) ([]meet.Race, error) {
		url := s.base.Endpoints().LiveURL("resultats.php", "competition", competitionID, "langue", "fra", "go", "epreuve")
		doc, err := s.base.OpenDocument(ctx, url)
		if err != nil {
			return nil, err
		}
		races := make([]meet.Race, 0)
		seen := make(map[string]bool)
		doc.Find("select.epreuve option").Each(func(_ int, opt *goquery.Selection) {
			m := racePattern.FindStringSubmatch(opt.AttrOr("value", ""))
			if m == nil || seen[m[1]] {
				return
			}
			r := meet.Race{ID: m[1], Name: scraper.Text(opt)}
			if !scraper.SafeValidate(r) {
				return
			}
			seen[r.ID] = true
			races = append(races, r)
		})
		return races, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(cached), nil
}

func (s *Scraper) parse(doc *goquery.Document) *meet.RaceResults {
	res := &meet.RaceResults{Results: make([]meet.RaceResultEntry, 0)}

	header := scraper.Text(doc.Find("table.tableau td.epreuve").First())
	if m := headerDatePattern.FindStringSubmatch(header); m != nil {
		res.RaceDate = strings.TrimSpace(m[1])
		header = scraper.NormalizeSpace(strings.Replace(header, m[0], "", 1))
	}
	res.RaceName = header

	doc.Find("table.tableau tr.survol").Each(func(_ int, row *goquery.Selection) {
		entry, ok := parseRow(row)
		if !ok || !scraper.SafeValidate(entry) {
			s.base.DropRow("result", logger.Fields{"swimmer": entry.SwimmerID, "name": entry.Name})
			return
		}
		res.Results = append(res.Results, entry)
	})
	return res
}

func parseRow(row *goquery.Selection) (meet.RaceResultEntry, bool) {
	// Only direct cells: the time cell nests a split table.
	cells := row.ChildrenFiltered("td")
	link := cells.Eq(1).Find("a").First()

	entry := meet.RaceResultEntry{
		SwimmerID:     scraper.QueryParam(link.AttrOr("href", ""), "iuf"),
		Name:          scraper.Text(link),
		BirthYear:     scraper.Text(cells.Eq(2)),
		Nationality:   scraper.Text(cells.Eq(3)),
		Club:          scraper.Text(cells.Eq(4)),
		Reaction:      scraper.Text(row.ChildrenFiltered("td.reaction")),
		Qualification: scraper.Text(row.ChildrenFiltered("td.qualification")),
		Remark:        scraper.Text(row.ChildrenFiltered("td.rem")),
		Splits:        make([]meet.Split, 0),
	}
	if entry.SwimmerID == "" || entry.Name == "" {
		return entry, false
	}

	entry.Rank = parseRank(scraper.Text(row.ChildrenFiltered("td.place")))
	entry.Points = parsePoints(scraper.Text(row.ChildrenFiltered("td.points")))

	timeCell := row.ChildrenFiltered("td.temps_sans_tps_passage, td.temps").First()
	var t string
	if a := timeCell.Find("a.tooltip").First(); a.Length() > 0 {
		t = scraper.FirstText(a)
	} else {
		t = scraper.OwnText(timeCell)
	}
	if t != "" {
		entry.Time = &t
	}
	entry.Splits = parseSplits(timeCell)
	return entry, true
}

// parseRank reads "12." as 12. Disqualification markers give nil.
func parseRank(s string) *int {
	n, ok := scraper.LeadingInt(strings.TrimSuffix(s, "."))
	if !ok {
		return nil
	}
	return &n
}

func parsePoints(s string) *int {
	m := pointsPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, ok := scraper.LeadingInt(m[1])
	if !ok {
		return nil
	}
	return &n
}

func parseSplits(timeCell *goquery.Selection) []meet.Split {
	splits := make([]meet.Split, 0)
	timeCell.Find("table.split tr").Each(func(_ int, tr *goquery.Selection) {
		d := strings.Join(strings.Fields(tr.Find("td.distance").Text()), "")
		d = strings.ReplaceAll(d, ":", "")
		if d == "" {
			return
		}
		d = strings.Replace(d, "m", " m", 1)
		lap := strings.Trim(scraper.Text(tr.Find("td.relay")), "[]() ")
		splits = append(splits, meet.Split{
			Distance:   d,
			Cumulative: scraper.Text(tr.Find("td.split")),
			Split:      lap,
		})
	})
	return splits
}
