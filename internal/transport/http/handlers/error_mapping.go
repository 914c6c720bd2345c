package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// commonCases apply to every resource after its own cases.
var commonCases = []ErrorCase{
	{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "insufficient permissions"},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
// Domain validation errors map to 400 and invalid transitions to 409, both carrying the domain message.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		resp := NewErrorResponse(c, validation.Message)
		resp.Field = validation.Field
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	var transition *domain.InvalidTransitionError
	if errors.As(err, &transition) {
		c.JSON(http.StatusConflict, NewErrorResponse(c, transition.Error()))
		return
	}

	for _, set := range [][]ErrorCase{cases, commonCases} {
		for _, cs := range set {
			if cs.Err == nil {
				continue
			}
			if errors.Is(err, cs.Err) {
				c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
				return
			}
		}
	}

	_ = c.Error(err)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
