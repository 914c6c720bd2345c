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

// OrderCommands drives the resale order lifecycle.
type OrderCommands interface {
	PlaceOrder(ctx context.Context, customerID string, lines []domain.OrderLine) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)
	MarkPaid(ctx context.Context, id string) (*domain.Order, error)
	Cancel(ctx context.Context, id, reason string) (*domain.Order, error)
	MarkFulfilled(ctx context.Context, id string) (*domain.Order, error)
}

var orderErrorCases = []ErrorCase{
	{Err: usecase.ErrOrderNotFound, Status: http.StatusNotFound, Message: "order not found"},
	{Err: usecase.ErrBookNotFound, Status: http.StatusUnprocessableEntity, Message: "book not found in catalog"},
}

type OrderHandler struct {
	orders OrderCommands
}

func NewOrderHandler(orders OrderCommands) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) Create(c *gin.Context) {
	customerID, ok := middleware.GetPrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req OrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid order payload"))
		return
	}

	lines := make([]domain.OrderLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domain.OrderLine{ISBN: l.ISBN, Quantity: l.Quantity})
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), customerID, lines)
	if err != nil {
		RespondWithMappedError(c, err, orderErrorCases, http.StatusInternalServerError, "failed to place order")
		return
	}
	c.JSON(http.StatusCreated, newOrderPayload(order))
}

func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, orderErrorCases, http.StatusInternalServerError, "failed to load order")
		return
	}
	if !ownsResource(c, order.CustomerID()) {
		return
	}
	c.JSON(http.StatusOK, newOrderPayload(order))
}

func (h *OrderHandler) List(c *gin.Context) {
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(c.DefaultQuery("status", string(domain.OrderPending)))))

	orders, err := h.orders.ListByStatus(c.Request.Context(), status)
	if err != nil {
		RespondWithMappedError(c, err, orderErrorCases, http.StatusInternalServerError, "failed to list orders")
		return
	}

	owner, narrow := customerFilter(c)
	payload := make([]OrderPayload, 0, len(orders))
	for _, o := range orders {
		if narrow && o.CustomerID() != owner {
			continue
		}
		payload = append(payload, newOrderPayload(o))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *OrderHandler) Pay(c *gin.Context) {
	if !h.authorizeOwner(c) {
		return
	}
	h.respond(c, "failed to pay order", h.orders.MarkPaid)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req ReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid cancel payload"))
			return
		}
	}
	if !h.authorizeOwner(c) {
		return
	}
	h.respond(c, "failed to cancel order", func(ctx context.Context, id string) (*domain.Order, error) {
		return h.orders.Cancel(ctx, id, req.Reason)
	})
}

func (h *OrderHandler) Fulfill(c *gin.Context) {
	h.respond(c, "failed to fulfill order", h.orders.MarkFulfilled)
}

func (h *OrderHandler) authorizeOwner(c *gin.Context) bool {
	if _, narrow := customerFilter(c); !narrow {
		return true
	}
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, orderErrorCases, http.StatusInternalServerError, "failed to load order")
		return false
	}
	return ownsResource(c, order.CustomerID())
}

func (h *OrderHandler) respond(c *gin.Context, failure string, op func(ctx context.Context, id string) (*domain.Order, error)) {
	order, err := op(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, orderErrorCases, http.StatusInternalServerError, failure)
		return
	}
	c.JSON(http.StatusOK, newOrderPayload(order))
}
