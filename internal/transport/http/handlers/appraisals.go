package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/usecase"
)

// AppraisalCommands drives grading of received books.
type AppraisalCommands interface {
	GetAppraisal(ctx context.Context, id string) (*domain.Appraisal, error)
	GetByPurchaseRequest(ctx context.Context, purchaseRequestID string) (*domain.Appraisal, error)
	ListByStatus(ctx context.Context, status domain.AppraisalStatus) ([]*domain.Appraisal, error)
	StartAppraisal(ctx context.Context, purchaseRequestID string) (*domain.Appraisal, error)
	AddBook(ctx context.Context, appraisalID string, input usecase.AddBookInput) (*domain.Appraisal, error)
	CompleteAppraisal(ctx context.Context, appraisalID string) (*domain.Appraisal, error)
}

var appraisalErrorCases = []ErrorCase{
	{Err: usecase.ErrAppraisalNotFound, Status: http.StatusNotFound, Message: "appraisal not found"},
	{Err: usecase.ErrPurchaseRequestNotFound, Status: http.StatusNotFound, Message: "purchase request not found"},
	{Err: usecase.ErrAppraisalExists, Status: http.StatusConflict, Message: "appraisal already exists for purchase request"},
	{Err: usecase.ErrRequestNotReceived, Status: http.StatusConflict, Message: "purchase request has not been received"},
	{Err: usecase.ErrBookNotFound, Status: http.StatusUnprocessableEntity, Message: "book not found in catalog"},
}

type AppraisalHandler struct {
	appraisals AppraisalCommands
}

func NewAppraisalHandler(appraisals AppraisalCommands) *AppraisalHandler {
	return &AppraisalHandler{appraisals: appraisals}
}

func (h *AppraisalHandler) Start(c *gin.Context) {
	var req AppraisalCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid appraisal payload"))
		return
	}

	appraisal, err := h.appraisals.StartAppraisal(c.Request.Context(), strings.TrimSpace(req.PurchaseRequestID))
	if err != nil {
		RespondWithMappedError(c, err, appraisalErrorCases, http.StatusInternalServerError, "failed to start appraisal")
		return
	}
	c.JSON(http.StatusCreated, newAppraisalPayload(appraisal))
}

func (h *AppraisalHandler) Get(c *gin.Context) {
	appraisal, err := h.appraisals.GetAppraisal(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, appraisalErrorCases, http.StatusInternalServerError, "failed to load appraisal")
		return
	}
	c.JSON(http.StatusOK, newAppraisalPayload(appraisal))
}

// List filters by purchase_request_id when given, otherwise by status.
func (h *AppraisalHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if requestID := strings.TrimSpace(c.Query("purchase_request_id")); requestID != "" {
		appraisal, err := h.appraisals.GetByPurchaseRequest(ctx, requestID)
		if err != nil {
			RespondWithMappedError(c, err, appraisalErrorCases, http.StatusInternalServerError, "failed to load appraisal")
			return
		}
		c.JSON(http.StatusOK, []AppraisalPayload{newAppraisalPayload(appraisal)})
		return
	}

	status := domain.AppraisalStatus(strings.ToLower(strings.TrimSpace(c.DefaultQuery("status", string(domain.AppraisalInProgress)))))
	appraisals, err := h.appraisals.ListByStatus(ctx, status)
	if err != nil {
		RespondWithMappedError(c, err, appraisalErrorCases, http.StatusInternalServerError, "failed to list appraisals")
		return
	}

	payload := make([]AppraisalPayload, 0, len(appraisals))
	for _, a := range appraisals {
		payload = append(payload, newAppraisalPayload(a))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *AppraisalHandler) AddBook(c *gin.Context) {
	var req AppraisalBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid book payload"))
		return
	}

	appraisal, err := h.appraisals.AddBook(c.Request.Context(), c.Param("id"), usecase.AddBookInput{
		ISBN:      req.ISBN,
		Condition: req.Condition,
		Title:     req.Title,
		BasePrice: req.BasePrice,
	})
	if err != nil {
		RespondWithMappedError(c, err, appraisalErrorCases, http.StatusInternalServerError, "failed to add book")
		return
	}
	c.JSON(http.StatusOK, newAppraisalPayload(appraisal))
}

func (h *AppraisalHandler) Complete(c *gin.Context) {
	appraisal, err := h.appraisals.CompleteAppraisal(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, appraisalErrorCases, http.StatusInternalServerError, "failed to complete appraisal")
		return
	}
	c.JSON(http.StatusOK, newAppraisalPayload(appraisal))
}
