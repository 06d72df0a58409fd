package scraper

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a scraping failure.
type Kind int

const (
	// KindUpstream covers network failures, unexpected HTTP statuses and
	// markup the parser cannot make sense of.
	KindUpstream Kind = iota
	KindValidation
	KindNotFound
	KindCompetitionClosed
)

func (k Kind) String() string {
	switch k {
	case KindUpstream:
		return "upstream"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindCompetitionClosed:
		return "competition_closed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error codes surfaced to callers.
const (
	CodeScraping          = "SCRAPING_ERROR"
	CodeAccessDenied      = "ACCESS_DENIED"
	CodeHTTP              = "HTTP_ERROR"
	CodeNetwork           = "NETWORK_ERROR"
	CodeParsing           = "PARSING_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeCompetitionClosed = "COMPETITION_CLOSED"
	CodeValidation        = "VALIDATION_ERROR"
)

// Error is the single error type returned by scrapers.
type Error struct {
	Kind    Kind
	Code    string
	Status  int
	Message string
	// Fields maps JSON field names to the rule they failed. Validation only.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource, e.g. NotFound("Compétition").
func NotFound(resource string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: resource + " non trouvé(e)",
	}
}

// CompetitionClosed reports a competition whose pages are not published yet.
func CompetitionClosed() *Error {
	return &Error{
		Kind:    KindCompetitionClosed,
		Code:    CodeCompetitionClosed,
		Status:  http.StatusNotFound,
		Message: "La compétition n'est pas encore ouverte",
	}
}

// Invalid reports bad caller input. err may carry validator.ValidationErrors.
func Invalid(message string, err error) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: message,
		Fields:  fieldErrors(err),
		Err:     err,
	}
}

// Upstream reports a failure of the source site or of parsing its markup.
func Upstream(code string, status int, message string, err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Code:    code,
		Status:  status,
		Message: message,
		Err:     err,
	}
}

// ParsingError reports markup that does not have the expected shape.
func ParsingError(message string) *Error {
	return Upstream(CodeParsing, http.StatusInternalServerError, message, nil)
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// HTTPStatus maps err to the status a caller should answer with.
// Errors outside the taxonomy map to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if e, ok := AsError(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}
