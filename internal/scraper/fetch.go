package scraper

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/ffn-meets/internal/logger"
)

const (
	// DefaultUserAgent mimics a desktop browser; the live site rejects
	// obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
)

var tracer = otel.Tracer("ffn-meets/scraper")

// FetcherOptions configures a Fetcher. Zero values select the defaults.
type FetcherOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond caps outgoing requests. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

// Fetcher performs GET requests against the source sites and maps failures
// to the error taxonomy. It knows nothing about caching.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	return &Fetcher{client: client}
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*resty.Response, error) {
	ctx, span := tracer.Start(ctx, "Fetcher.Get", trace.WithAttributes(attribute.String("url", url)))
	defer span.End()

	start := time.Now()
	res, err := f.client.R().SetContext(ctx).Get(url)
	elapsed := time.Since(start)
	logger.RecordTiming("fetch", elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		logger.IncrCounter("fetch.error")
		logger.Warn("fetch failed", logger.Fields{"url": url, "error": err.Error()})
		return nil, Upstream(CodeNetwork, http.StatusServiceUnavailable, "Erreur réseau pour "+url, err)
	}

	status := res.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	logger.Debug("fetched page", logger.Fields{
		"url":         url,
		"status":      status,
		"bytes":       len(res.Body()),
		"duration_ms": elapsed.Milliseconds(),
	})

	switch {
	case status == http.StatusForbidden:
		span.SetStatus(codes.Error, "access denied")
		logger.IncrCounter("fetch.error")
		return nil, Upstream(CodeAccessDenied, http.StatusForbidden, "Accès refusé à "+url, nil)
	case !res.IsSuccess():
		span.SetStatus(codes.Error, res.Status())
		logger.IncrCounter("fetch.error")
		return nil, Upstream(CodeHTTP, status, "Réponse inattendue pour "+url, nil)
	}

	logger.IncrCounter("fetch.ok")
	return res, nil
}

// Get fetches url and returns the raw body.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	res, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return res.Body(), nil
}

// Document fetches url and parses it as HTML, decoding legacy charsets
// announced by the server.
func (f *Fetcher) Document(ctx context.Context, url string) (*goquery.Document, error) {
	res, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	// An empty page is still a document; charset sniffing fails on it.
	var r io.Reader = bytes.NewReader(res.Body())
	if len(res.Body()) > 0 {
		r, err = charset.NewReader(r, res.Header().Get("Content-Type"))
		if err != nil {
			return nil, Upstream(CodeParsing, http.StatusInternalServerError, "decoding "+url, err)
		}
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, Upstream(CodeParsing, http.StatusInternalServerError, "parsing HTML from "+url, err)
	}
	return doc, nil
}
