package v1

import (
	"errors"
	"net/http"

	"github.com/tally-ledger/backend/internal/auth"
	"github.com/tally-ledger/backend/internal/models"
)

type httpError struct {
	Error string `json:"error" example:"there is no category matching your query"`
}

// status returns the appropriate status for an error of the ledger
func status(err error) int {
	switch {
	case errors.Is(err, models.ErrGeneral), errors.Is(err, models.ErrInvalidState):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	}

	return http.StatusBadRequest
}

var (
	errNoFilePost      = errors.New("you must send a file in the 'file' form field to this endpoint")
	errFileTooLarge    = errors.New("the attachment is too large")
	errInvalidStatus   = errors.New("the status must be 'Active' or 'Triggered'")
	errInvalidDateSpan = errors.New("fromDate must be before untilDate")
)
