package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/ffn-meets/internal/cache"
)

func newTestBase(t *testing.T, handler http.HandlerFunc) (*Base, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := NewBase(Options{
		Name:      "test",
		Fetcher:   NewFetcher(FetcherOptions{Timeout: 5 * time.Second}),
		Endpoints: Endpoints{Live: server.URL, Archive: server.URL},
		Cache:     cache.New(),
		TTL:       time.Minute,
	})
	return base, server
}

func TestFetcherSendsBrowserUserAgent(t *testing.T) {
	var gotUA string
	base, server := newTestBase(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body><p>ok</p></body></html>"))
	})

	doc, err := base.Document(context.Background(), server.URL+"/page.php")
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Find("p").Text())
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestFetcherErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantCode   string
		wantStatus int
	}{
		{"forbidden", http.StatusForbidden, CodeAccessDenied, http.StatusForbidden},
		{"server error", http.StatusInternalServerError, CodeHTTP, http.StatusInternalServerError},
		{"not found", http.StatusNotFound, CodeHTTP, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, server := newTestBase(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := base.Fetcher().Get(context.Background(), server.URL)
			require.Error(t, err)
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindUpstream, e.Kind)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantStatus, e.Status)
		})
	}
}

func TestFetcherNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewFetcher(FetcherOptions{Timeout: time.Second}).Get(context.Background(), url)
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNetwork, e.Code)
	assert.Equal(t, http.StatusServiceUnavailable, e.Status)
}

func TestFetcherDecodesLatin1(t *testing.T) {
	base, server := newTestBase(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "Entraîneur" in Latin-1.
		w.Write([]byte("<p>Entra\xeeneur</p>"))
	})

	doc, err := base.Document(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Entraîneur", doc.Find("p").Text())
}

func TestFetcherEmptyBody(t *testing.T) {
	base, server := newTestBase(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.WriteHeader(http.StatusOK)
	})

	doc, err := base.OpenDocument(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Zero(t, doc.Find("p").Length())
	assert.Empty(t, strings.TrimSpace(doc.Text()))
}

func TestOpenDocumentDetectsClosedCompetition(t *testing.T) {
	base, server := newTestBase(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<div id="boxAlert">Compétition non ouverte</div>`))
	})

	_, err := base.OpenDocument(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCompetitionClosed))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestCheckCompetitionOpen(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div id="content"></div>`))
	require.NoError(t, err)
	assert.NoError(t, CheckCompetitionOpen(doc))
}

func TestCacheKey(t *testing.T) {
	base := NewBase(Options{Name: "club"})
	assert.Equal(t, `clubs:"1234"`, base.CacheKey("clubs", "1234"))
	assert.Equal(t, `series:"1":{"cat_id":"3"}`, base.CacheKey("series", "1", map[string]string{"cat_id": "3"}))
	assert.Equal(t, "competitions", base.CacheKey("competitions"))
}

func TestGetOrFetchComputesOncePerWindow(t *testing.T) {
	base := NewBase(Options{Name: "test", Cache: cache.New(), TTL: time.Minute})

	var calls int32
	compute := func(context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"a"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrFetch(context.Background(), base, "k", compute)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, got)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	base := NewBase(Options{Name: "test", Cache: cache.New(), TTL: time.Minute})

	var calls int
	compute := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}

	_, err := GetOrFetch(context.Background(), base, "k", compute)
	require.Error(t, err)

	got, err := GetOrFetch(context.Background(), base, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestGetOrFetchWithoutCache(t *testing.T) {
	base := NewBase(Options{Name: "test"})

	var calls int
	compute := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	first, _ := GetOrFetch(context.Background(), base, "k", compute)
	second, _ := GetOrFetch(context.Background(), base, "k", compute)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestEndpointsURL(t *testing.T) {
	e := Endpoints{Live: "https://live.test/cgi-bin/", Archive: "https://archive.test/webffn"}
	assert.Equal(t,
		"https://live.test/cgi-bin/resultats.php?competition=12&langue=fra&go=epreuve",
		e.LiveURL("resultats.php", "competition", "12", "langue", "fra", "go", "epreuve"))
	assert.Equal(t,
		"https://archive.test/webffn/nat_perfs.php?idact=nat",
		e.ArchiveURL("nat_perfs.php", "idact", "nat"))
	assert.Equal(t, "https://live.test/cgi-bin/liste_live.php", e.LiveURL("liste_live.php"))
}
