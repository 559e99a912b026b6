package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ErrorWriter maps domain errors to HTTP responses. Unexpected errors are
// logged server-side and surfaced as a generic 500 unless Verbose is set.
type ErrorWriter struct {
	Logger  *slog.Logger
	Verbose bool
}

// RespondError translates err into the matching status and error envelope.
func (ew ErrorWriter) RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrConflict):
		Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrDependencyExists):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Fail(w, http.StatusForbidden, err.Error())
	default:
		if ew.Logger != nil {
			ew.Logger.Error("unhandled error", slog.Any("error", err))
		}
		if ew.Verbose {
			Fail(w, http.StatusInternalServerError, err.Error())
			return
		}
		Fail(w, http.StatusInternalServerError, "internal server error")
	}
}
