package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/krau/handsign/service"
)

// RequestError carries the status code and the message shown to the client.
// Err keeps the underlying cause for logs.
type RequestError struct {
	StatusCode int
	Msg        string
	Err        error
}

func (r *RequestError) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("status %d: %s: %v", r.StatusCode, r.Msg, r.Err)
	}
	return fmt.Sprintf("status %d: %s", r.StatusCode, r.Msg)
}

func (r *RequestError) Unwrap() error {
	return r.Err
}

var (
	ErrModelNotLoaded  = &RequestError{StatusCode: http.StatusInternalServerError, Msg: "Model not loaded"}
	ErrNoImage         = &RequestError{StatusCode: http.StatusBadRequest, Msg: "No image provided"}
	ErrInvalidBody     = &RequestError{StatusCode: http.StatusBadRequest, Msg: "Invalid request body"}
	ErrInvalidImage    = &RequestError{StatusCode: http.StatusBadRequest, Msg: "Invalid image data"}
	ErrBodyTooLarge    = &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Msg: "Request body too large"}
	ErrUnauthorized    = &RequestError{StatusCode: http.StatusUnauthorized, Msg: "Unauthorized"}
	ErrInternalFailure = &RequestError{StatusCode: http.StatusInternalServerError, Msg: "Internal server error"}
)

func errTooManyImages(limit int) *RequestError {
	return &RequestError{StatusCode: http.StatusBadRequest, Msg: fmt.Sprintf("Too many images, at most %d per request", limit)}
}

// toRequestError maps pipeline errors onto client responses. Unknown errors
// are internal failures and expose their message.
func toRequestError(err error) *RequestError {
	var re *RequestError
	if errors.As(err, &re) {
		return re
	}
	var item *service.ItemError
	if errors.As(err, &item) {
		inner := toRequestError(item.Err)
		return &RequestError{
			StatusCode: inner.StatusCode,
			Msg:        fmt.Sprintf("image %d: %s", item.Index, inner.Msg),
			Err:        err,
		}
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return withCause(ErrBodyTooLarge, err)
	case errors.Is(err, service.ErrModelUnavailable):
		return ErrModelNotLoaded
	case errors.Is(err, service.ErrNoImage):
		return ErrNoImage
	case errors.Is(err, service.ErrDecodeFailed):
		return withCause(ErrInvalidImage, err)
	}
	return &RequestError{StatusCode: http.StatusInternalServerError, Msg: err.Error(), Err: err}
}

func withCause(re *RequestError, err error) *RequestError {
	return &RequestError{StatusCode: re.StatusCode, Msg: re.Msg, Err: err}
}
