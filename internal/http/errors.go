package httpapp

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindTooManyRequests
	KindInternal
)

func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single failure value handlers produce. Message is shown to the
// client; Err is only logged.
type Error struct {
	Kind       Kind
	Message    string
	Err        error
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int { return e.Kind.Status() }

func validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func notFoundErr(msg string) *Error  { return &Error{Kind: KindNotFound, Message: msg} }
func forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// fail writes err as {"message": ...}. Anything that is not an *Error is
// reported as a generic internal error.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var he *Error
	if !errors.As(err, &he) {
		he = internal("Something went wrong", err)
	}
	logger := hlog.FromRequest(r)
	switch {
	case he.Kind == KindInternal:
		logger.Error().Err(he.Err).Int("status", he.Status()).Msg(he.Message)
	case he.Err != nil:
		logger.Debug().Err(he.Err).Int("status", he.Status()).Msg(he.Message)
	}
	if he.RetryAfter > 0 {
		secs := int(he.RetryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeJSON(w, he.Status(), map[string]string{"message": he.Message})
}
