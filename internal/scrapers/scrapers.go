// Package scrapers wires every entity scraper around one fetcher and one
// cache.
package scrapers

import (
	"time"

	"github.com/pfrederiksen/ffn-meets/internal/cache"
	"github.com/pfrederiksen/ffn-meets/internal/club"
	"github.com/pfrederiksen/ffn-meets/internal/competition"
	"github.com/pfrederiksen/ffn-meets/internal/engagement"
	"github.com/pfrederiksen/ffn-meets/internal/qualification"
	"github.com/pfrederiksen/ffn-meets/internal/results"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
	"github.com/pfrederiksen/ffn-meets/internal/series"
	"github.com/pfrederiksen/ffn-meets/internal/swimmer"
)

// Options configures the scraper set. Zero values select defaults.
type Options struct {
	Endpoints scraper.Endpoints
	Fetcher   scraper.FetcherOptions

	// TTL applies to every scraper but the qualification one.
	TTL              time.Duration
	QualificationTTL time.Duration
	DisableCache     bool

	BatchSize     int
	DefaultLane   int
	Qualification qualification.Options
}

// Scrapers is the full set of entity scrapers.
type Scrapers struct {
	Cache   *cache.Cache
	Fetcher *scraper.Fetcher

	Competitions   *competition.Scraper
	Clubs          *club.Scraper
	Swimmers       *swimmer.Scraper
	Series         *series.Scraper
	Results        *results.Scraper
	Qualifications *qualification.Scraper
	Engagements    *engagement.Scraper
}

// New builds the scraper set.
func New(opts Options) *Scrapers {
	if opts.QualificationTTL <= 0 {
		opts.QualificationTTL = qualification.DefaultTTL
	}

	s := &Scrapers{Fetcher: scraper.NewFetcher(opts.Fetcher)}
	if !opts.DisableCache {
		s.Cache = cache.New()
	}

	base := func(name string, ttl time.Duration) *scraper.Base {
		return scraper.NewBase(scraper.Options{
			Name:      name,
			Fetcher:   s.Fetcher,
			Endpoints: opts.Endpoints,
			Cache:     s.Cache,
			TTL:       ttl,
		})
	}

	s.Competitions = competition.New(base("competition", opts.TTL))
	s.Clubs = club.New(base("club", opts.TTL))
	s.Swimmers = swimmer.New(base("swimmer", opts.TTL), s.Clubs, opts.BatchSize)
	s.Series = series.New(base("series", opts.TTL), opts.DefaultLane)
	s.Results = results.New(base("results", opts.TTL))
	s.Qualifications = qualification.New(base("qualification", opts.QualificationTTL), opts.Qualification)
	s.Engagements = engagement.New(base("engagement", opts.TTL), s.Results)
	return s
}
