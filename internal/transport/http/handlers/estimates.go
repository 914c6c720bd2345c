package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/book-buyback/internal/core/port"
	"github.com/arklim/book-buyback/internal/usecase"
)

var estimateErrorCases = []ErrorCase{
	{Err: usecase.ErrBookNotFound, Status: http.StatusUnprocessableEntity, Message: "book not found in catalog"},
}

type EstimateHandler struct {
	estimator port.Estimator
}

func NewEstimateHandler(estimator port.Estimator) *EstimateHandler {
	return &EstimateHandler{estimator: estimator}
}

// Create quotes the ISBNs without persisting anything.
func (h *EstimateHandler) Create(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid estimate payload"))
		return
	}

	estimate, err := h.estimator.Estimate(c.Request.Context(), req.ISBNs)
	if err != nil {
		RespondWithMappedError(c, err, estimateErrorCases, http.StatusInternalServerError, "failed to calculate estimate")
		return
	}
	c.JSON(http.StatusOK, newEstimatePayload(estimate))
}
