package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pfrederiksen/ffn-meets/internal/cache"
	"github.com/pfrederiksen/ffn-meets/internal/logger"
)

const (
	DefaultLiveBaseURL    = "https://www.liveffn.com/cgi-bin"
	DefaultArchiveBaseURL = "https://ffn.extranat.fr/webffn"
)

// Endpoints holds the base URLs of the two source sites.
type Endpoints struct {
	Live    string
	Archive string
}

// DefaultEndpoints returns the production base URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{Live: DefaultLiveBaseURL, Archive: DefaultArchiveBaseURL}
}

// LiveURL builds a live-site URL such as resultats.php?competition=1.
// Parameters keep the given key/value order.
func (e Endpoints) LiveURL(page string, params ...string) string {
	return buildURL(e.Live, page, params)
}

// ArchiveURL builds an archive-site URL.
func (e Endpoints) ArchiveURL(page string, params ...string) string {
	return buildURL(e.Archive, page, params)
}

func buildURL(base, page string, params []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	b.WriteByte('/')
	b.WriteString(page)
	for i := 0; i+1 < len(params); i += 2 {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(params[i]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[i+1]))
	}
	return b.String()
}

// Options configures a Base.
type Options struct {
	// Name identifies the scraper in logs, metrics and cache keys.
	Name      string
	Fetcher   *Fetcher
	Endpoints Endpoints
	// Cache may be nil to disable caching.
	Cache *cache.Cache
	TTL   time.Duration
}

// Base bundles what every entity scraper needs: fetching, caching with a
// scraper-specific TTL, and a logger tagged with the scraper name.
type Base struct {
	name      string
	fetcher   *Fetcher
	endpoints Endpoints
	cache     *cache.Cache
	ttl       time.Duration
	log       *logger.Logger
}

// NewBase creates a Base. A nil Fetcher gets a default one.
func NewBase(opts Options) *Base {
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(FetcherOptions{})
	}
	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.TTL <= 0 {
		opts.TTL = cache.DefaultTTL
	}
	return &Base{
		name:      opts.Name,
		fetcher:   opts.Fetcher,
		endpoints: opts.Endpoints,
		cache:     opts.Cache,
		ttl:       opts.TTL,
		log:       logger.Default().With(logger.Fields{"scraper": opts.Name}),
	}
}

func (b *Base) Name() string           { return b.name }
func (b *Base) TTL() time.Duration     { return b.ttl }
func (b *Base) Endpoints() Endpoints   { return b.endpoints }
func (b *Base) Logger() *logger.Logger { return b.log }
func (b *Base) Fetcher() *Fetcher      { return b.fetcher }
func (b *Base) CacheEnabled() bool     { return b.cache != nil }

// CacheKey derives a deterministic key: the prefix followed by the JSON
// encoding of each argument, joined by ':'.
func (b *Base) CacheKey(prefix string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, prefix)
	for _, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			data = []byte(fmt.Sprint(a))
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, ":")
}

// Document fetches and parses a page.
func (b *Base) Document(ctx context.Context, url string) (*goquery.Document, error) {
	return b.fetcher.Document(ctx, url)
}

// OpenDocument fetches a competition page and fails with CompetitionClosed
// when the site shows its "not open yet" banner.
func (b *Base) OpenDocument(ctx context.Context, url string) (*goquery.Document, error) {
	doc, err := b.fetcher.Document(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := CheckCompetitionOpen(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CheckCompetitionOpen returns CompetitionClosed when doc carries the
// #boxAlert banner.
func CheckCompetitionOpen(doc *goquery.Document) error {
	if doc.Find("#boxAlert").Length() > 0 {
		return CompetitionClosed()
	}
	return nil
}

// DropRow records a row rejected by validation.
func (b *Base) DropRow(kind string, fields logger.Fields) {
	logger.IncrCounter("rows.dropped")
	merged := logger.Fields{"row": kind}
	for k, v := range fields {
		merged[k] = v
	}
	b.log.Debug("dropped invalid row", merged)
}

// GetOrFetch returns the cached value under key or computes, stores and
// returns a fresh one. Errors are never cached.
func GetOrFetch[T any](ctx context.Context, b *Base, key string, compute func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, b.name+".GetOrFetch")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key))

	if b.cache != nil {
		if v, ok := b.cache.Get(key); ok {
			if typed, ok := v.(T); ok {
				logger.IncrCounter("cache.hit")
				span.SetAttributes(attribute.Bool("cache.hit", true))
				return typed, nil
			}
		}
		logger.IncrCounter("cache.miss")
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	val, err := compute(ctx)
	if err != nil {
		span.RecordError(err)
		var zero T
		return zero, err
	}
	if b.cache != nil {
		b.cache.Set(key, val, b.ttl)
	}
	return val, nil
}
