package httpapi

import (
	"errors"
	"net/http"

	svcchess "github.com/park285/cheese-sparring/internal/service/chess"
	"github.com/park285/cheese-sparring/pkg/chessdto"
)

type errorMapping struct {
	target    error
	status    int
	code      string
	retryable bool
}

var errorMappings = []errorMapping{
	{svcchess.ErrInvalidRequest, http.StatusBadRequest, chessdto.CodeInvalidRequest, false},
	{svcchess.ErrInvalidMove, http.StatusBadRequest, chessdto.CodeInvalidMove, false},
	{svcchess.ErrSessionNotFound, http.StatusNotFound, chessdto.CodeNotFound, false},
	{svcchess.ErrGameNotFound, http.StatusNotFound, chessdto.CodeNotFound, false},
	{svcchess.ErrProfileNotFound, http.StatusNotFound, chessdto.CodeNotFound, false},
	{svcchess.ErrSessionInProgress, http.StatusConflict, chessdto.CodeSessionInProgress, false},
	{svcchess.ErrNotPlayerTurn, http.StatusConflict, chessdto.CodeNotPlayerTurn, true},
	{svcchess.ErrGameOver, http.StatusConflict, chessdto.CodeGameOver, false},
	{svcchess.ErrEngineBusy, http.StatusConflict, chessdto.CodeEngineBusy, true},
	{svcchess.ErrEngineTimeout, http.StatusServiceUnavailable, chessdto.CodeEngineTimeout, true},
	{svcchess.ErrEngineUnavailable, http.StatusServiceUnavailable, chessdto.CodeEngineUnavailable, true},
}

// mapError translates a service error to an HTTP status and wire error.
func mapError(err error) (int, *chessdto.DomainError) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, &chessdto.DomainError{Code: m.code, Message: err.Error(), Retryable: m.retryable}
		}
	}
	return http.StatusInternalServerError, &chessdto.DomainError{Code: chessdto.CodeInternal, Message: "internal error", Retryable: true}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, &chessdto.DomainError{Code: chessdto.CodeInvalidRequest, Message: msg})
}
