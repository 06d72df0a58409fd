// Package swimmer lists the swimmers entered in a competition and reads
// their detail pages.
//
// The participant index is cheap: one page gives every swimmer's license id
// and displayed name. Gender, club and birth year need one detail page per
// swimmer, so detail fetches only happen when a lookup narrows down to a
// single swimmer or when the caller explicitly asks for detailed listings,
// in which case pages are fetched concurrently in fixed-size batches.
package swimmer

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
)

// DefaultBatchSize is the number of detail pages fetched concurrently.
const DefaultBatchSize = 10

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// ClubFinder resolves a club name to a club of the same competition.
type ClubFinder interface {
	FindByName(ctx context.Context, competitionID, name string) (*meet.Club, error)
}

// Scraper reads participant pages.
type Scraper struct {
	base      *scraper.Base
	clubs     ClubFinder
	batchSize int
}

// New creates a swimmer scraper. clubs may be nil, in which case detailed
// swimmers carry a club name but no club id.
func New(base *scraper.Base, clubs ClubFinder, batchSize int) *Scraper {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Scraper{base: base, clubs: clubs, batchSize: batchSize}
}

type competitionQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
}

type swimmerQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
	SwimmerID     string `json:"swimmerId" validate:"required"`
}

type searchQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
	FirstName     string `json:"firstName" validate:"required_without=LastName"`
	LastName      string `json:"lastName" validate:"required_without=FirstName"`
}

type clubQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
	ClubID        string `json:"clubId" validate:"required"`
}

func (s *Scraper) indexURL(competitionID string) string {
	return s.base.Endpoints().LiveURL("startlist.php",
		"competition", competitionID,
		"langue", "fra",
		"go", "detail",
		"action", "participant",
	)
}

func (s *Scraper) detailURL(competitionID, swimmerID string) string {
	return s.base.Endpoints().LiveURL("startlist.php",
		"competition", competitionID,
		"langue", "fra",
		"go", "detail",
		"action", "participant",
		"iuf", swimmerID,
	)
}

// GetAll returns the participant index: id, names and detail link.
func (s *Scraper) GetAll(ctx context.Context, competitionID string) ([]meet.Swimmer, error) {
	if err := scraper.Validate(competitionQuery{CompetitionID: competitionID}, "CompetId invalide"); err != nil {
		return nil, err
	}

	key := s.base.CacheKey("swimmers", competitionID)
	cached, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) ([]meet.Swimmer, error) {
		pageURL := s.indexURL(competitionID)
		doc, err := s.base.OpenDocument(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		return s.parseIndex(doc, pageURL), nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(cached), nil
}

func (s *Scraper) parseIndex(doc *goquery.Document, pageURL string) []meet.Swimmer {
	swimmers := make([]meet.Swimmer, 0)
	seen := make(map[string]bool)
	doc.Find(".nageur").Each(func(_ int, el *goquery.Selection) {
		a := el.Find("a").First()
		href := a.AttrOr("href", "")
		id := scraper.QueryParam(href, "iuf")
		if id == "" || seen[id] {
			return
		}

		first, last := scraper.SplitName(scraper.Text(a))
		sw := meet.Swimmer{
			ID:        id,
			FirstName: first,
			LastName:  last,
			Link:      scraper.AbsoluteURL(pageURL, href),
		}
		if !scraper.SafeValidate(sw) {
			s.base.DropRow("swimmer", logger.Fields{"id": id})
			return
		}
		seen[id] = true
		swimmers = append(swimmers, sw)
	})
	return swimmers
}

// GetByID returns one swimmer with detail-page fields filled in.
func (s *Scraper) GetByID(ctx context.Context, competitionID, swimmerID string) (*meet.Swimmer, error) {
	q := swimmerQuery{CompetitionID: competitionID, SwimmerID: strings.TrimSpace(swimmerID)}
	if err := scraper.Validate(q, "Paramètres invalides"); err != nil {
		return nil, err
	}

	all, err := s.GetAll(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == q.SwimmerID {
			return s.Detail(ctx, competitionID, all[i])
		}
	}
	return nil, scraper.NotFound("Nageur")
}

// Search filters the index on first and/or last name (case and accent
// insensitive substring). A single match is returned with its details.
func (s *Scraper) Search(ctx context.Context, competitionID, firstName, lastName string) ([]meet.Swimmer, error) {
	q := searchQuery{
		CompetitionID: competitionID,
		FirstName:     strings.TrimSpace(firstName),
		LastName:      strings.TrimSpace(lastName),
	}
	if err := scraper.Validate(q, "Au moins le prénom ou le nom est requis"); err != nil {
		return nil, err
	}

	all, err := s.GetAll(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	first, last := meet.Fold(q.FirstName), meet.Fold(q.LastName)
	matches := make([]meet.Swimmer, 0)
	for _, sw := range all {
		if first != "" && !strings.Contains(meet.Fold(sw.FirstName), first) {
			continue
		}
		if last != "" && !strings.Contains(meet.Fold(sw.LastName), last) {
			continue
		}
		matches = append(matches, sw)
	}

	if len(matches) == 1 {
		detailed, err := s.Detail(ctx, competitionID, matches[0])
		if err != nil {
			return nil, err
		}
		matches[0] = *detailed
	}
	return matches, nil
}

// GetAllDetailed returns every swimmer with detail-page fields. Detail pages
// are fetched batch by batch; swimmers whose page fails are left out.
func (s *Scraper) GetAllDetailed(ctx context.Context, competitionID string) ([]meet.Swimmer, error) {
	index, err := s.GetAll(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	key := s.base.CacheKey("swimmers-detailed", competitionID)
	cached, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) ([]meet.Swimmer, error) {
		out := make([]meet.Swimmer, 0, len(index))
		for start := 0; start < len(index); start += s.batchSize {
			batch := index[start:min(start+s.batchSize, len(index))]
			results := make([]*meet.Swimmer, len(batch))

			g, gctx := errgroup.WithContext(ctx)
			for i, sw := range batch {
				g.Go(func() error {
					detailed, err := s.Detail(gctx, competitionID, sw)
					if err != nil {
						s.base.Logger().Warn("skipping swimmer detail", logger.Fields{"id": sw.ID, "error": err.Error()})
						return nil
					}
					results[i] = detailed
					return nil
				})
			}
			_ = g.Wait()
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			for _, r := range results {
				if r != nil && r.Detailed() {
					out = append(out, *r)
				}
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(cached), nil
}

// GetByClub returns the detailed swimmers of one club.
func (s *Scraper) GetByClub(ctx context.Context, competitionID, clubID string) ([]meet.Swimmer, error) {
	if err := scraper.Validate(clubQuery{CompetitionID: competitionID, ClubID: clubID}, "Paramètres invalides"); err != nil {
		return nil, err
	}
	all, err := s.GetAllDetailed(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	out := make([]meet.Swimmer, 0)
	for _, sw := range all {
		if sw.ClubID == clubID {
			out = append(out, sw)
		}
	}
	return out, nil
}

// GetFirst returns the first swimmer of the index, or nil on any failure.
func (s *Scraper) GetFirst(ctx context.Context, competitionID string) *meet.Swimmer {
	all, err := s.GetAll(ctx, competitionID)
	if err != nil || len(all) == 0 {
		return nil
	}
	return &all[0]
}

// Detail fetches the detail page of an index entry. When the page does not
// carry the identity block, the index entry is returned unchanged.
func (s *Scraper) Detail(ctx context.Context, competitionID string, entry meet.Swimmer) (*meet.Swimmer, error) {
	key := s.base.CacheKey("swimmer-detail", competitionID, entry.ID)
	detailed, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) (meet.Swimmer, error) {
		link := entry.Link
		if link == "" {
			link = s.detailURL(competitionID, entry.ID)
		}
		doc, err := s.base.Document(ctx, link)
		if err != nil {
			return meet.Swimmer{}, err
		}

		sw, ok := parseDetail(doc, entry)
		if !ok {
			return entry, nil
		}
		if sw.ClubName != "" && s.clubs != nil {
			club, err := s.clubs.FindByName(ctx, competitionID, sw.ClubName)
			if err != nil {
				s.base.Logger().Debug("club lookup failed", logger.Fields{"club": sw.ClubName, "error": err.Error()})
			} else if club != nil {
				sw.ClubID = club.ID
			}
		}
		if !scraper.SafeValidate(sw) {
			s.base.DropRow("swimmer-detail", logger.Fields{"id": entry.ID})
			return entry, nil
		}
		return sw, nil
	})
	if err != nil {
		return nil, err
	}
	return &detailed, nil
}

// parseDetail reads the identity block "NOM Prénom (2008 - CLUB : ...)".
// The block's class tells the gender.
func parseDetail(doc *goquery.Document, entry meet.Swimmer) (meet.Swimmer, bool) {
	table := doc.Find(".tableau")
	td := table.Find(".resStructureIndividu1")
	gender := meet.GenderMale
	if td.Length() == 0 {
		td = table.Find(".resStructureIndividu2")
		gender = meet.GenderFemale
	}
	if td.Length() == 0 {
		return entry, false
	}

	raw := scraper.Text(td.First())
	name, rest, found := strings.Cut(raw, "(")
	if !found {
		return entry, false
	}

	sw := entry
	sw.Gender = gender
	if first, last := scraper.SplitName(name); first != "" {
		sw.FirstName, sw.LastName = first, last
	}

	yearPart, clubPart, _ := strings.Cut(rest, " - ")
	if m := yearPattern.FindStringSubmatch(yearPart); m != nil {
		sw.BirthYear, _ = strconv.Atoi(m[1])
	}
	clubName, _, _ := strings.Cut(clubPart, ":")
	sw.ClubName = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(clubName), ")")))
	return sw, true
}
