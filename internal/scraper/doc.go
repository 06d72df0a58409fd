// Package scraper provides the shared machinery of the swim meet scrapers.
//
// It owns the HTTP fetch layer (browser User-Agent, politeness rate limit,
// tracing), the error taxonomy every scraper reports through, the Base type
// that combines fetching with the TTL cache and struct validation, and small
// text helpers for the French markup of the live-results and archive sites
// (HHhMM times, "NOM Prénom" names, query parameters in links).
//
// Entity scrapers live in their own packages and receive a *Base plus any
// other scraper they depend on through their constructor.
package scraper
