// Package club lists the clubs (structures) entered in a competition.
package club

import (
	"context"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
)

// Scraper reads the club startlist of a competition.
type Scraper struct {
	base *scraper.Base
}

// New creates a club scraper.
func New(base *scraper.Base) *Scraper {
	return &Scraper{base: base}
}

type competitionQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
}

func (s *Scraper) pageURL(competitionID string) string {
	return s.base.Endpoints().LiveURL("startlist.php",
		"competition", competitionID,
		"langue", "fra",
		"go", "detail",
		"action", "structure",
	)
}

// GetAll returns the clubs of a competition in page order, one per id.
func (s *Scraper) GetAll(ctx context.Context, competitionID string) ([]meet.Club, error) {
	if err := scraper.Validate(competitionQuery{CompetitionID: competitionID}, "CompetId invalide"); err != nil {
		return nil, err
	}

	key := s.base.CacheKey("clubs", competitionID)
	cached, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) ([]meet.Club, error) {
		doc, err := s.base.OpenDocument(ctx, s.pageURL(competitionID))
		if err != nil {
			return nil, err
		}
		return s.parse(doc), nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(cached), nil
}

func (s *Scraper) parse(doc *goquery.Document) []meet.Club {
	clubs := make([]meet.Club, 0)
	seen := make(map[string]bool)
	doc.Find(".resStructure").Each(func(_ int, el *goquery.Selection) {
		a := el.Find("a").First()
		c := meet.Club{
			ID:   scraper.QueryParam(a.AttrOr("href", ""), "structure"),
			Name: strings.ToLower(scraper.Text(a)),
		}
		if seen[c.ID] {
			return
		}
		if !scraper.SafeValidate(c) {
			s.base.DropRow("club", logger.Fields{"id": c.ID, "name": c.Name})
			return
		}
		seen[c.ID] = true
		clubs = append(clubs, c)
	})
	return clubs
}

// GetByID returns one club of a competition.
func (s *Scraper) GetByID(ctx context.Context, competitionID, clubID string) (*meet.Club, error) {
	clubs, err := s.GetAll(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	for i := range clubs {
		if clubs[i].ID == clubID {
			return &clubs[i], nil
		}
	}
	return nil, scraper.NotFound("Club")
}

// FindByName returns the club whose name equals name, or failing that the
// first one containing it. Case and surrounding spaces are ignored.
// Returns nil, nil when nothing matches.
func (s *Scraper) FindByName(ctx context.Context, competitionID, name string) (*meet.Club, error) {
	clubs, err := s.GetAll(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	needle := scraper.NormalizeSpace(strings.ToLower(name))
	if needle == "" {
		return nil, nil
	}
	for i := range clubs {
		if clubs[i].Name == needle {
			return &clubs[i], nil
		}
	}
	for i := range clubs {
		if strings.Contains(clubs[i].Name, needle) {
			return &clubs[i], nil
		}
	}
	return nil, nil
}

// GetFirst returns the first club, or nil on any failure.
func (s *Scraper) GetFirst(ctx context.Context, competitionID string) *meet.Club {
	clubs, err := s.GetAll(ctx, competitionID)
	if err != nil || len(clubs) == 0 {
		return nil
	}
	return &clubs[0]
}
