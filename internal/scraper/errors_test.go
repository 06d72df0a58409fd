package scraper

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   Kind
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Compétition"), KindNotFound, CodeNotFound, http.StatusNotFound},
		{"closed", CompetitionClosed(), KindCompetitionClosed, CodeCompetitionClosed, http.StatusNotFound},
		{"validation", Invalid("bad input", nil), KindValidation, CodeValidation, http.StatusBadRequest},
		{"parsing", ParsingError("missing cat_id"), KindUpstream, CodeParsing, http.StatusInternalServerError},
		{"http", Upstream(CodeHTTP, http.StatusBadGateway, "bad gateway", nil), KindUpstream, CodeHTTP, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("scraping: %w", tt.err)

			e, ok := AsError(wrapped)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantStatus, HTTPStatus(wrapped))
			assert.True(t, IsKind(wrapped, tt.wantKind))
		})
	}
}

func TestNotFoundMessageNamesResource(t *testing.T) {
	assert.Contains(t, NotFound("Club").Error(), "Club")
}

func TestHTTPStatusOutsideTaxonomy(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.False(t, IsKind(errors.New("boom"), KindUpstream))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream(CodeNetwork, http.StatusServiceUnavailable, "network", cause)
	assert.ErrorIs(t, err, cause)
}
