package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/usecase"
)

// ShipmentCommands drives outbound fulfilment.
type ShipmentCommands interface {
	CreateShipment(ctx context.Context, orderID string, address domain.Address) (*domain.Shipment, error)
	GetShipment(ctx context.Context, id string) (*domain.Shipment, error)
	ListByStatus(ctx context.Context, status domain.ShipmentStatus) ([]*domain.Shipment, error)
	StartPicking(ctx context.Context, id string) (*domain.Shipment, error)
	MarkPacked(ctx context.Context, id string) (*domain.Shipment, error)
	Dispatch(ctx context.Context, id string, input usecase.DispatchInput) (*domain.Shipment, error)
	UpdateInTransit(ctx context.Context, id string) (*domain.Shipment, error)
	MarkDelivered(ctx context.Context, id string) (*domain.Shipment, error)
}

// OrderReader resolves the order a shipment belongs to.
type OrderReader interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
}

var shipmentErrorCases = []ErrorCase{
	{Err: usecase.ErrShipmentNotFound, Status: http.StatusNotFound, Message: "shipment not found"},
	{Err: usecase.ErrOrderNotFound, Status: http.StatusNotFound, Message: "order not found"},
	{Err: usecase.ErrShipmentExists, Status: http.StatusConflict, Message: "shipment already exists for order"},
	{Err: usecase.ErrOrderNotPaid, Status: http.StatusConflict, Message: "order is not paid"},
}

type ShipmentHandler struct {
	shipments ShipmentCommands
	orders    OrderReader
}

func NewShipmentHandler(shipments ShipmentCommands, orders OrderReader) *ShipmentHandler {
	return &ShipmentHandler{shipments: shipments, orders: orders}
}

func (h *ShipmentHandler) Create(c *gin.Context) {
	var req ShipmentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid shipment payload"))
		return
	}

	shipment, err := h.shipments.CreateShipment(c.Request.Context(), strings.TrimSpace(req.OrderID), req.Address.toDomain())
	if err != nil {
		RespondWithMappedError(c, err, shipmentErrorCases, http.StatusInternalServerError, "failed to create shipment")
		return
	}
	c.JSON(http.StatusCreated, newShipmentPayload(shipment))
}

func (h *ShipmentHandler) Get(c *gin.Context) {
	shipment, err := h.shipments.GetShipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, shipmentErrorCases, http.StatusInternalServerError, "failed to load shipment")
		return
	}

	if _, narrow := customerFilter(c); narrow {
		if h.orders == nil {
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "insufficient permissions"))
			return
		}
		order, err := h.orders.GetOrder(c.Request.Context(), shipment.OrderID())
		if err != nil {
			RespondWithMappedError(c, err, shipmentErrorCases, http.StatusInternalServerError, "failed to load shipment")
			return
		}
		if !ownsResource(c, order.CustomerID()) {
			return
		}
	}

	c.JSON(http.StatusOK, newShipmentPayload(shipment))
}

// List is staff-only; customers reach their shipments through their orders.
func (h *ShipmentHandler) List(c *gin.Context) {
	if _, narrow := customerFilter(c); narrow {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "insufficient permissions"))
		return
	}

	status := domain.ShipmentStatus(strings.ToLower(strings.TrimSpace(c.DefaultQuery("status", string(domain.ShipmentPending)))))

	shipments, err := h.shipments.ListByStatus(c.Request.Context(), status)
	if err != nil {
		RespondWithMappedError(c, err, shipmentErrorCases, http.StatusInternalServerError, "failed to list shipments")
		return
	}

	payload := make([]ShipmentPayload, 0, len(shipments))
	for _, s := range shipments {
		payload = append(payload, newShipmentPayload(s))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *ShipmentHandler) StartPicking(c *gin.Context) {
	h.respond(c, "failed to start picking", h.shipments.StartPicking)
}

func (h *ShipmentHandler) MarkPacked(c *gin.Context) {
	h.respond(c, "failed to mark shipment packed", h.shipments.MarkPacked)
}

func (h *ShipmentHandler) Dispatch(c *gin.Context) {
	var req ShipmentDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid dispatch payload"))
		return
	}
	h.respond(c, "failed to dispatch shipment", func(ctx context.Context, id string) (*domain.Shipment, error) {
		return h.shipments.Dispatch(ctx, id, usecase.DispatchInput{
			Carrier:        req.Carrier,
			TrackingNumber: req.TrackingNumber,
		})
	})
}

func (h *ShipmentHandler) UpdateInTransit(c *gin.Context) {
	h.respond(c, "failed to update shipment", h.shipments.UpdateInTransit)
}

func (h *ShipmentHandler) MarkDelivered(c *gin.Context) {
	h.respond(c, "failed to mark shipment delivered", h.shipments.MarkDelivered)
}

func (h *ShipmentHandler) respond(c *gin.Context, failure string, op func(ctx context.Context, id string) (*domain.Shipment, error)) {
	shipment, err := op(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, shipmentErrorCases, http.StatusInternalServerError, failure)
		return
	}
	c.JSON(http.StatusOK, newShipmentPayload(shipment))
}
