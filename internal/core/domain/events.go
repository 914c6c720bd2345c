package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event type tags. They are part of the published contract and must not change.
const (
	EventAppraisalCompleted       = "appraisal.completed"
	EventPurchaseRequestSubmitted = "PurchaseRequestSubmitted"
	EventPurchaseRequestReceived  = "PurchaseRequestReceived"
	EventPurchaseRequestAccepted  = "PurchaseRequestAccepted"
	EventPurchaseRequestRejected  = "PurchaseRequestRejected"
	EventUserRoleAssigned         = "UserRoleAssigned"
	EventUserRoleRemoved          = "UserRoleRemoved"
	EventShipmentDispatched       = "shipment.dispatched"
	EventShipmentDelivered        = "shipment.delivered"
	EventOrderPlaced              = "order.placed"
	EventOrderPaid                = "order.paid"
	EventOrderCancelled           = "order.cancelled"
	EventOrderExpired             = "order.expired"
	EventOrderFulfilled           = "order.fulfilled"
)

// AllEventTypes lists every event type the services publish.
func AllEventTypes() []string {
	return []string{
		EventAppraisalCompleted,
		EventPurchaseRequestSubmitted,
		EventPurchaseRequestReceived,
		EventPurchaseRequestAccepted,
		EventPurchaseRequestRejected,
		EventUserRoleAssigned,
		EventUserRoleRemoved,
		EventShipmentDispatched,
		EventShipmentDelivered,
		EventOrderPlaced,
		EventOrderPaid,
		EventOrderCancelled,
		EventOrderExpired,
		EventOrderFulfilled,
	}
}

// Event is an immutable record of a completed state transition.
type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
}

// EventMeta carries the identity and timestamp shared by every event.
type EventMeta struct {
	ID string
	At time.Time
}

func newEventMeta() EventMeta {
	return EventMeta{ID: uuid.NewString(), At: time.Now().UTC()}
}

func (m EventMeta) EventID() string       { return m.ID }
func (m EventMeta) OccurredAt() time.Time { return m.At }

// AppraisalCompletedEvent is published once an appraisal is closed and saved.
type AppraisalCompletedEvent struct {
	EventMeta         `json:"-"`
	AppraisalID       string `json:"appraisalId"`
	PurchaseRequestID string `json:"purchaseRequestId"`
	TotalOffer        Money  `json:"totalOffer"`
	BookCount         int    `json:"bookCount"`
}

func (AppraisalCompletedEvent) EventType() string { return EventAppraisalCompleted }

// NewAppraisalCompletedEvent summarizes a completed appraisal.
func NewAppraisalCompletedEvent(a *Appraisal) AppraisalCompletedEvent {
	return AppraisalCompletedEvent{
		EventMeta:         newEventMeta(),
		AppraisalID:       a.ID(),
		PurchaseRequestID: a.PurchaseRequestID(),
		TotalOffer:        a.TotalOffer(),
		BookCount:         a.BookCount(),
	}
}

// PurchaseRequestSubmittedEvent is published after a draft is submitted.
type PurchaseRequestSubmittedEvent struct {
	EventMeta      `json:"-"`
	RequestID      string `json:"requestId"`
	CustomerID     string `json:"customerId"`
	TrackingNumber string `json:"trackingNumber"`
}

func (PurchaseRequestSubmittedEvent) EventType() string { return EventPurchaseRequestSubmitted }

func NewPurchaseRequestSubmittedEvent(r *PurchaseRequest) PurchaseRequestSubmittedEvent {
	return PurchaseRequestSubmittedEvent{
		EventMeta:      newEventMeta(),
		RequestID:      r.ID(),
		CustomerID:     r.CustomerID(),
		TrackingNumber: r.TrackingNumber(),
	}
}

// PurchaseRequestReceivedEvent is published when the inbound parcel is checked in.
type PurchaseRequestReceivedEvent struct {
	EventMeta      `json:"-"`
	RequestID      string `json:"requestId"`
	TrackingNumber string `json:"trackingNumber"`
}

func (PurchaseRequestReceivedEvent) EventType() string { return EventPurchaseRequestReceived }

func NewPurchaseRequestReceivedEvent(r *PurchaseRequest) PurchaseRequestReceivedEvent {
	return PurchaseRequestReceivedEvent{
		EventMeta:      newEventMeta(),
		RequestID:      r.ID(),
		TrackingNumber: r.TrackingNumber(),
	}
}

// PurchaseRequestAcceptedEvent is published when a payout is decided.
type PurchaseRequestAcceptedEvent struct {
	EventMeta     `json:"-"`
	RequestID     string        `json:"requestId"`
	Amount        Money         `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

func (PurchaseRequestAcceptedEvent) EventType() string { return EventPurchaseRequestAccepted }

func NewPurchaseRequestAcceptedEvent(r *PurchaseRequest) PurchaseRequestAcceptedEvent {
	return PurchaseRequestAcceptedEvent{
		EventMeta:     newEventMeta(),
		RequestID:     r.ID(),
		Amount:        r.AcceptedAmount(),
		PaymentMethod: r.PaymentMethod(),
	}
}

// PurchaseRequestRejectedEvent is published when received books are declined.
type PurchaseRequestRejectedEvent struct {
	EventMeta      `json:"-"`
	RequestID      string `json:"requestId"`
	TrackingNumber string `json:"trackingNumber"`
}

func (PurchaseRequestRejectedEvent) EventType() string { return EventPurchaseRequestRejected }

func NewPurchaseRequestRejectedEvent(r *PurchaseRequest) PurchaseRequestRejectedEvent {
	return PurchaseRequestRejectedEvent{
		EventMeta:      newEventMeta(),
		RequestID:      r.ID(),
		TrackingNumber: r.TrackingNumber(),
	}
}

// UserRoleAssignedEvent is published after a role is granted to a user.
type UserRoleAssignedEvent struct {
	EventMeta  `json:"-"`
	UserID     string     `json:"userId"`
	RoleID     string     `json:"roleId"`
	RoleName   string     `json:"roleName"`
	AssignedBy string     `json:"assignedBy"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Scope      *string    `json:"scope,omitempty"`
}

func (UserRoleAssignedEvent) EventType() string { return EventUserRoleAssigned }

func NewUserRoleAssignedEvent(a RoleAssignment, role *Role) UserRoleAssignedEvent {
	return UserRoleAssignedEvent{
		EventMeta:  newEventMeta(),
		UserID:     a.UserID,
		RoleID:     a.RoleID,
		RoleName:   role.Name(),
		AssignedBy: a.AssignedBy,
		ExpiresAt:  a.ExpiresAt,
		Scope:      a.Scope,
	}
}

// UserRoleRemovedEvent is published after a role is revoked from a user.
type UserRoleRemovedEvent struct {
	EventMeta `json:"-"`
	UserID    string  `json:"userId"`
	RoleID    string  `json:"roleId"`
	RoleName  string  `json:"roleName"`
	RemovedBy string  `json:"removedBy"`
	Scope     *string `json:"scope,omitempty"`
}

func (UserRoleRemovedEvent) EventType() string { return EventUserRoleRemoved }

func NewUserRoleRemovedEvent(userID, removedBy string, role *Role, scope *string) UserRoleRemovedEvent {
	return UserRoleRemovedEvent{
		EventMeta: newEventMeta(),
		UserID:    userID,
		RoleID:    role.ID(),
		RoleName:  role.Name(),
		RemovedBy: removedBy,
		Scope:     scope,
	}
}

// ShipmentDispatchedEvent is published once a parcel is handed to the carrier.
type ShipmentDispatchedEvent struct {
	EventMeta      `json:"-"`
	ShipmentID     string  `json:"shipmentId"`
	OrderID        string  `json:"orderId"`
	Carrier        Carrier `json:"carrier"`
	TrackingNumber string  `json:"trackingNumber"`
	TrackingURL    string  `json:"trackingUrl,omitempty"`
}

func (ShipmentDispatchedEvent) EventType() string { return EventShipmentDispatched }

func NewShipmentDispatchedEvent(s *Shipment) ShipmentDispatchedEvent {
	return ShipmentDispatchedEvent{
		EventMeta:      newEventMeta(),
		ShipmentID:     s.ID(),
		OrderID:        s.OrderID(),
		Carrier:        s.Carrier(),
		TrackingNumber: s.TrackingNumber(),
		TrackingURL:    s.TrackingURL(),
	}
}

// ShipmentDeliveredEvent is published once the carrier confirms delivery.
type ShipmentDeliveredEvent struct {
	EventMeta   `json:"-"`
	ShipmentID  string    `json:"shipmentId"`
	OrderID     string    `json:"orderId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

func (ShipmentDeliveredEvent) EventType() string { return EventShipmentDelivered }

func NewShipmentDeliveredEvent(s *Shipment) ShipmentDeliveredEvent {
	var at time.Time
	if d := s.DeliveredAt(); d != nil {
		at = *d
	}
	return ShipmentDeliveredEvent{
		EventMeta:   newEventMeta(),
		ShipmentID:  s.ID(),
		OrderID:     s.OrderID(),
		DeliveredAt: at,
	}
}

// OrderEvent covers every order transition; Type selects the tag.
type OrderEvent struct {
	EventMeta  `json:"-"`
	Type       string `json:"-"`
	OrderID    string `json:"orderId"`
	CustomerID string `json:"customerId"`
	Total      Money  `json:"total"`
	Reason     string `json:"reason,omitempty"`
}

func (e OrderEvent) EventType() string { return e.Type }

// NewOrderEvent records the order's current state under the given type tag.
func NewOrderEvent(eventType string, o *Order) OrderEvent {
	return OrderEvent{
		EventMeta:  newEventMeta(),
		Type:       eventType,
		OrderID:    o.ID(),
		CustomerID: o.CustomerID(),
		Total:      o.Total(),
		Reason:     o.CancelReason(),
	}
}
