// Package competition lists the swim meets published on the live-results site.
package competition

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
)

const listPage = "liste_live.php"

var (
	poolSizePattern = regexp.MustCompile(`(?i)(\d+)\s*m`)
	statsPattern    = regexp.MustCompile(`(?i)(\d+)\s*engagements\s*/\s*(\d+)\s*nageurs`)
)

// levelSections pairs each level with the class suffix used on the list page.
var levelSections = []struct {
	level meet.Level
	key   string
}{
	{meet.LevelNational, "N"},
	{meet.LevelRegional, "R"},
	{meet.LevelDepartemental, "D"},
}

// Scraper fetches the competition list.
type Scraper struct {
	base *scraper.Base
}

// New creates a competition scraper.
func New(base *scraper.Base) *Scraper {
	return &Scraper{base: base}
}

type nameQuery struct {
	Name string `json:"name" validate:"required"`
}

type locationQuery struct {
	Location string `json:"location" validate:"required"`
}

// GetAll returns every listed competition.
func (s *Scraper) GetAll(ctx context.Context) ([]meet.Competition, error) {
	key := s.base.CacheKey("competitions")
	cached, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) ([]meet.Competition, error) {
		pageURL := s.base.Endpoints().LiveURL(listPage)
		doc, err := s.base.Document(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		return s.extract(doc, pageURL), nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(cached), nil
}

// extract runs the section strategy and falls back to bare anchors when the
// page layout does not carry the level containers.
func (s *Scraper) extract(doc *goquery.Document, pageURL string) []meet.Competition {
	var out []meet.Competition
	for _, c := range fromLevelSections(doc, pageURL) {
		if !scraper.SafeValidate(c) {
			s.base.DropRow("competition", logger.Fields{"id": c.ID})
			continue
		}
		out = append(out, c)
	}
	if len(out) > 0 {
		return out
	}

	s.base.Logger().Debug("level sections empty, using anchor fallback", nil)
	for _, c := range fromAnchors(doc) {
		if !scraper.SafeValidate(c) {
			s.base.DropRow("competition", logger.Fields{"id": c.ID})
			continue
		}
		out = append(out, c)
	}
	return out
}

// GetByID returns the competition with the given external id.
func (s *Scraper) GetByID(ctx context.Context, id string) (*meet.Competition, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, scraper.NotFound("Compétition")
}

// SearchByName returns competitions whose name contains name, ignoring case.
func (s *Scraper) SearchByName(ctx context.Context, name string) ([]meet.Competition, error) {
	if err := scraper.Validate(nameQuery{Name: strings.TrimSpace(name)}, "Le nom de la compétition est requis"); err != nil {
		return nil, err
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	return filter(all, func(c meet.Competition) bool {
		return strings.Contains(strings.ToLower(c.Name), needle)
	}), nil
}

// SearchByLocation returns competitions held in a city containing location.
func (s *Scraper) SearchByLocation(ctx context.Context, location string) ([]meet.Competition, error) {
	if err := scraper.Validate(locationQuery{Location: strings.TrimSpace(location)}, "Le lieu est requis"); err != nil {
		return nil, err
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	needle := meet.Fold(location)
	return filter(all, func(c meet.Competition) bool {
		return strings.Contains(meet.Fold(c.Location), needle)
	}), nil
}

// ByLevel returns competitions of the given level.
func (s *Scraper) ByLevel(ctx context.Context, level meet.Level) ([]meet.Competition, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return filter(all, func(c meet.Competition) bool { return c.Level == level }), nil
}

// GetFirst returns the first listed competition, or nil when the list is
// empty or cannot be fetched.
func (s *Scraper) GetFirst(ctx context.Context) *meet.Competition {
	all, err := s.GetAll(ctx)
	if err != nil || len(all) == 0 {
		return nil
	}
	return &all[0]
}

func filter(in []meet.Competition, keep func(meet.Competition) bool) []meet.Competition {
	out := make([]meet.Competition, 0, len(in))
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// fromLevelSections reads the per-level containers of the list page.
func fromLevelSections(doc *goquery.Document, pageURL string) []meet.Competition {
	var out []meet.Competition
	for _, section := range levelSections {
		doc.Find(classes("containeur_niveau", section.key)).Each(func(_ int, root *goquery.Selection) {
			name := scraper.Text(root.Find(classes("competition_nom", section.key)))
			info := scraper.Text(root.Find(classes("date", section.key)))
			pool := poolSize(scraper.Text(root.Find(classes("bassin", section.key))))
			dates := meet.ExtractDates(info)
			id := competitionID(root.Find("a").First().AttrOr("href", ""))

			if id == "" || name == "" || pool == 0 || len(dates) == 0 {
				return
			}

			c := meet.Competition{
				Level:     section.level,
				ID:        id,
				Name:      name,
				PoolSize:  pool,
				StartDate: dates[0],
				EndDate:   endDate(dates),
				Location:  strings.ToLower(scraper.Text(root.Find(classes("competition_lieu", section.key)))),
			}
			if src, ok := root.Find(".visuel_img img").Attr("src"); ok && strings.TrimSpace(src) != "" {
				c.Image = scraper.AbsoluteURL(pageURL, src)
			}
			c.Entries, c.Swimmers = stats(info)
			out = append(out, c)
		})
	}
	return out
}

// fromAnchors is the fallback: any link carrying a competition parameter,
// with its surroundings read from the parent element.
func fromAnchors(doc *goquery.Document) []meet.Competition {
	var out []meet.Competition
	seen := make(map[string]bool)
	doc.Find("a[href*='competition=']").Each(func(_ int, a *goquery.Selection) {
		id := scraper.QueryParam(a.AttrOr("href", ""), "competition")
		name := scraper.Text(a)
		if id == "" || name == "" || seen[id] {
			return
		}
		seen[id] = true

		around := scraper.Text(a.Parent())
		pool := poolSize(around)
		if pool == 0 {
			pool = 25
		}
		dates := meet.ExtractDates(around)
		start := time.Unix(0, 0).UTC()
		if len(dates) > 0 {
			start = dates[0]
		}

		c := meet.Competition{
			Level:     meet.LevelNational,
			ID:        id,
			Name:      name,
			PoolSize:  pool,
			StartDate: start,
			EndDate:   endDate(dates),
		}
		c.Entries, c.Swimmers = stats(around)
		out = append(out, c)
	})
	return out
}

// classes builds the selector for a level-suffixed class, accepting both
// letter cases used by the site.
func classes(prefix, key string) string {
	return "." + prefix + key + ", ." + prefix + strings.ToLower(key)
}

func competitionID(href string) string {
	if id := scraper.QueryParam(href, "competition"); id != "" {
		return id
	}
	if i := strings.LastIndex(href, "="); i >= 0 {
		return strings.TrimSpace(href[i+1:])
	}
	return ""
}

func poolSize(text string) int {
	m := poolSizePattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func stats(text string) (entries, swimmers int) {
	m := statsPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0
	}
	entries, _ = strconv.Atoi(m[1])
	swimmers, _ = strconv.Atoi(m[2])
	return entries, swimmers
}

func endDate(dates []time.Time) *time.Time {
	if len(dates) < 2 {
		return nil
	}
	end := dates[1]
	return &end
}
