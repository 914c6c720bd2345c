package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/transport/http/middleware"
	"github.com/arklim/book-buyback/internal/usecase"
)

// PurchaseRequestCommands drives the buyback request lifecycle.
type PurchaseRequestCommands interface {
	CreateDraft(ctx context.Context, customerID string, isbns []string) (*domain.PurchaseRequest, error)
	GetPurchaseRequest(ctx context.Context, id string) (*domain.PurchaseRequest, error)
	ListByStatus(ctx context.Context, status domain.PurchaseRequestStatus) ([]*domain.PurchaseRequest, error)
	Submit(ctx context.Context, id string) (*domain.PurchaseRequest, error)
	MarkReceived(ctx context.Context, id string) (*domain.PurchaseRequest, error)
	Accept(ctx context.Context, id string, input usecase.AcceptPurchaseRequestInput) (*domain.PurchaseRequest, error)
	Reject(ctx context.Context, id, reason string) (*domain.PurchaseRequest, error)
}

var purchaseRequestErrorCases = []ErrorCase{
	{Err: usecase.ErrPurchaseRequestNotFound, Status: http.StatusNotFound, Message: "purchase request not found"},
	{Err: usecase.ErrBookNotFound, Status: http.StatusUnprocessableEntity, Message: "book not found in catalog"},
}

type PurchaseRequestHandler struct {
	requests PurchaseRequestCommands
}

func NewPurchaseRequestHandler(requests PurchaseRequestCommands) *PurchaseRequestHandler {
	return &PurchaseRequestHandler{requests: requests}
}

func (h *PurchaseRequestHandler) Create(c *gin.Context) {
	customerID, ok := middleware.GetPrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req PurchaseRequestCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid purchase request payload"))
		return
	}

	request, err := h.requests.CreateDraft(c.Request.Context(), customerID, req.ISBNs)
	if err != nil {
		RespondWithMappedError(c, err, purchaseRequestErrorCases, http.StatusInternalServerError, "failed to create purchase request")
		return
	}
	c.JSON(http.StatusCreated, newPurchaseRequestPayload(request))
}

func (h *PurchaseRequestHandler) Get(c *gin.Context) {
	request, err := h.requests.GetPurchaseRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, purchaseRequestErrorCases, http.StatusInternalServerError, "failed to load purchase request")
		return
	}
	if !ownsResource(c, request.CustomerID()) {
		return
	}
	c.JSON(http.StatusOK, newPurchaseRequestPayload(request))
}

func (h *PurchaseRequestHandler) List(c *gin.Context) {
	status := domain.PurchaseRequestStatus(strings.ToLower(strings.TrimSpace(c.DefaultQuery("status", string(domain.PurchaseRequestSubmitted)))))

	requests, err := h.requests.ListByStatus(c.Request.Context(), status)
	if err != nil {
		RespondWithMappedError(c, err, purchaseRequestErrorCases, http.StatusInternalServerError, "failed to list purchase requests")
		return
	}

	owner, narrow := customerFilter(c)
	payload := make([]PurchaseRequestPayload, 0, len(requests))
	for _, r := range requests {
		if narrow && r.CustomerID() != owner {
			continue
		}
		payload = append(payload, newPurchaseRequestPayload(r))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *PurchaseRequestHandler) Submit(c *gin.Context) {
	if !h.authorizeOwner(c) {
		return
	}
	h.respond(c, "failed to submit purchase request", h.requests.Submit)
}

func (h *PurchaseRequestHandler) Receive(c *gin.Context) {
	h.respond(c, "failed to receive purchase request", h.requests.MarkReceived)
}

func (h *PurchaseRequestHandler) Accept(c *gin.Context) {
	var req PurchaseRequestAcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid accept payload"))
		return
	}
	h.respond(c, "failed to accept purchase request", func(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
		return h.requests.Accept(ctx, id, usecase.AcceptPurchaseRequestInput{
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
		})
	})
}

func (h *PurchaseRequestHandler) Reject(c *gin.Context) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reject payload"))
		return
	}
	h.respond(c, "failed to reject purchase request", func(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
		return h.requests.Reject(ctx, id, req.Reason)
	})
}

// authorizeOwner loads the request to check a customer is acting on their own.
func (h *PurchaseRequestHandler) authorizeOwner(c *gin.Context) bool {
	if _, narrow := customerFilter(c); !narrow {
		return true
	}
	request, err := h.requests.GetPurchaseRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, purchaseRequestErrorCases, http.StatusInternalServerError, "failed to load purchase request")
		return false
	}
	return ownsResource(c, request.CustomerID())
}

func (h *PurchaseRequestHandler) respond(c *gin.Context, failure string, op func(ctx context.Context, id string) (*domain.PurchaseRequest, error)) {
	request, err := op(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, purchaseRequestErrorCases, http.StatusInternalServerError, failure)
		return
	}
	c.JSON(http.StatusOK, newPurchaseRequestPayload(request))
}
