// Package engagement builds a swimmer's timeline for one competition.
//
// The startlist page of a swimmer lists one row per race. Races are grouped
// into sessions by day and time of day; each session entry is followed by
// its races in start order.
package engagement

import (
	"context"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
)

// RaceLister lists the races of a competition. The results scraper
// satisfies it.
type RaceLister interface {
	ListRaces(ctx context.Context, competitionID string) ([]meet.Race, error)
}

// Session periods.
const (
	PeriodMorning   = "matin"
	PeriodAfternoon = "après-midi"
	PeriodEvening   = "soir"
	PeriodUnknown   = "session"
)

var (
	labelPattern  = regexp.MustCompile(`(?i)^(\d{2,4})\s+(.+?)\s+(dames|messieurs)$`)
	genderPattern = regexp.MustCompile(`(?i)\b(dames|messieurs)\b`)
	horaire       = regexp.MustCompile(`(?i)\b\d{1,2}h\d{2}\b`)
	idUnsafe      = regexp.MustCompile(`[^a-zA-Z0-9:_-]+`)
)

// Scraper reads swimmer startlists.
type Scraper struct {
	base  *scraper.Base
	races RaceLister
}

// New creates an engagement scraper. races may be nil, in which case
// engagements carry no race id.
func New(base *scraper.Base, races RaceLister) *Scraper {
	return &Scraper{base: base, races: races}
}

type engagementQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
	SwimmerID     string `json:"swimmerId" validate:"required"`
}

func (s *Scraper) pageURL(competitionID, swimmerID string) string {
	return s.base.Endpoints().LiveURL("startlist.php",
		"competition", competitionID,
		"langue", "fra",
		"go", "detail",
		"action", "participant",
		"iuf", swimmerID,
	)
}

// GetAll returns the timeline of a swimmer.
func (s *Scraper) GetAll(ctx context.Context, competitionID, swimmerID string) ([]meet.Engagement, error) {
	q := engagementQuery{CompetitionID: competitionID, SwimmerID: swimmerID}
	if err := scraper.Validate(q, "Paramètres invalides"); err != nil {
		return nil, err
	}

	key := s.base.CacheKey("engagements", competitionID, swimmerID)
	cached, err := scraper.GetOrFetch(ctx, s.base, key, func(ctx context.Context) ([]meet.Engagement, error) {
		var (
			doc    *goquery.Document
			raceID map[string]string
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			doc, err = s.base.OpenDocument(gctx, s.pageURL(competitionID, swimmerID))
			return err
		})
		g.Go(func() error {
			raceID = s.raceIDs(gctx, competitionID)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return s.parse(doc, q, raceID), nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(cached), nil
}

// raceIDs maps folded race names to result page ids. Failures only cost
// the ids, so they are logged and swallowed.
func (s *Scraper) raceIDs(ctx context.Context, competitionID string) map[string]string {
	out := make(map[string]string)
	if s.races == nil {
		return out
	}
	races, err := s.races.ListRaces(ctx, competitionID)
	if err != nil {
		s.base.Logger().Warn("race list unavailable", logger.Fields{
			"competId": competitionID,
			"error":    err.Error(),
		})
		return out
	}
	for _, r := range races {
		out[meet.Fold(r.Name)] = r.ID
	}
	return out
}

type session struct {
	date   string
	period string
	time   string
	races  []meet.Engagement
}

func (s *Scraper) parse(doc *goquery.Document, q engagementQuery, raceID map[string]string) []meet.Engagement {
	sessions := make(map[string]*session)
	var order []*session

	doc.Find("tr.survol").Each(func(_ int, row *goquery.Selection) {
		raw := scraper.Text(row.Find("td").First())
		label := RaceLabel(raw)
		if label == "" {
			return
		}

		date := scraper.Text(row.Find(".startlist_date"))
		rawTime := scraper.Text(row.Find(".startlist_horaire"))
		t := scraper.FormatHours(horaire.FindString(rawTime))
		period := Period(t)

		key := date + "|" + period
		sess, ok := sessions[key]
		if !ok {
			sess = &session{date: date, period: period, time: t}
			sessions[key] = sess
			order = append(order, sess)
		} else if t != "" && (sess.time == "" || t < sess.time) {
			sess.time = t
		}

		var meta []string
		for _, sel := range []string{".startlist_serie", ".startlist_couloir", ".temps"} {
			if v := scraper.Text(row.Find(sel)); v != "" {
				meta = append(meta, v)
			}
		}

		e := meet.Engagement{
			ID:     makeID("race", q.CompetitionID, q.SwimmerID, date, rawTime, label),
			Kind:   meet.KindRace,
			Time:   t,
			Label:  label,
			Meta:   strings.Join(meta, " • "),
			Date:   date,
			RaceID: raceID[meet.Fold(raw)],
		}
		if !scraper.SafeValidate(e) {
			s.base.DropRow("engagement", logger.Fields{"label": label, "time": rawTime})
			return
		}
		sess.races = append(sess.races, e)
	})

	out := make([]meet.Engagement, 0)
	for _, sess := range order {
		e := meet.Engagement{
			ID:    makeID("session", q.CompetitionID, q.SwimmerID, sess.date, sess.period),
			Kind:  meet.KindSession,
			Time:  sess.time,
			Label: dayName(sess.date) + " " + sess.period,
			Meta:  sess.date,
			Date:  sess.date,
		}
		if !scraper.SafeValidate(e) {
			s.base.DropRow("session", logger.Fields{"date": sess.date, "period": sess.period})
			continue
		}
		out = append(out, e)

		sort.SliceStable(sess.races, func(i, j int) bool {
			a, b := sess.races[i].Time, sess.races[j].Time
			if a == "" || b == "" {
				return a != "" && b == ""
			}
			return a < b
		})
		out = append(out, sess.races...)
	}
	return out
}

// GetByID returns one engagement given its id. The id embeds the
// competition and swimmer, so no other context is needed.
func (s *Scraper) GetByID(ctx context.Context, id string) (*meet.Engagement, error) {
	parts := strings.Split(id, ":")
	if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
		return nil, scraper.Invalid("Identifiant d'engagement invalide", nil)
	}
	all, err := s.GetAll(ctx, parts[1], parts[2])
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			e := all[i]
			return &e, nil
		}
	}
	return nil, scraper.NotFound("Engagement")
}

// RaceLabel shortens a startlist race name: "50 Papillon Dames" becomes
// "50 pap". Names of another shape only lose their gender word.
func RaceLabel(raw string) string {
	raw = scraper.NormalizeSpace(raw)
	m := labelPattern.FindStringSubmatch(raw)
	if m == nil {
		return scraper.NormalizeSpace(genderPattern.ReplaceAllString(raw, ""))
	}
	dist, _ := strconv.Atoi(m[1])
	name := strconv.Itoa(dist) + " " + m[2]
	if short := meet.RaceLabel(name); short != name {
		return strings.ToLower(short)
	}
	return name
}

// Period buckets an "HH:MM" time into a time of day.
func Period(t string) string {
	if t == "" {
		return PeriodUnknown
	}
	switch m := scraper.ParseHours(t); {
	case m < 12*60:
		return PeriodMorning
	case m < 18*60:
		return PeriodAfternoon
	default:
		return PeriodEvening
	}
}

func dayName(date string) string {
	first, _, _ := strings.Cut(date, " ")
	if first == "" {
		return "Jour"
	}
	r := []rune(strings.ToLower(first))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func makeID(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return idUnsafe.ReplaceAllString(strings.Join(kept, ":"), "_")
}
