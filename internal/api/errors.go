package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/cisa/internal/registry"
	"github.com/samcharles93/cisa/pkg/cisa"
)

// Values of ErrorBody.Type.
const (
	typeInvalidRequest   = "invalid_request_error"
	typeNotFound         = "not_found_error"
	typeInvalidContainer = "invalid_container_error"
	typeServer           = "server_error"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	status int
	msg    string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(status int, msg string) error {
	return invalidRequestError{status: status, msg: msg}
}

// classify maps request, registry and codec errors onto an HTTP status and
// an ErrorBody type. Uploads that fail to parse wrap both registry.ErrInvalid
// and a *cisa.Error, so ErrInvalid is checked first.
func classify(err error) (int, string) {
	var req invalidRequestError
	var cerr *cisa.Error
	switch {
	case errors.As(err, &req):
		return req.status, typeInvalidRequest
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, typeNotFound
	case errors.Is(err, registry.ErrInvalid):
		return http.StatusBadRequest, typeInvalidRequest
	case errors.As(err, &cerr):
		// Stored container whose bodies do not parse.
		return http.StatusUnprocessableEntity, typeInvalidContainer
	default:
		return http.StatusInternalServerError, typeServer
	}
}
