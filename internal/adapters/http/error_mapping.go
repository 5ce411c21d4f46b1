package httpadapter

import (
	"net/http"

	"github.com/varad-suryavanshi/member-qa/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrFetchFailed):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrModelLoad):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
