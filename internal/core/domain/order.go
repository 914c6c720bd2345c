package domain

import (
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of a resale order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
)

var orderTransitions = transitionTable[OrderStatus]{
	OrderPending: {OrderPaid, OrderCancelled, OrderExpired},
	OrderPaid:    {OrderFulfilled, OrderCancelled},
}

const entityOrder = "order"

// OrderLine is one listing bought in an order.
type OrderLine struct {
	ListingID string
	ISBN      string
	UnitPrice Money
	Quantity  int
}

// Subtotal is unit price times quantity.
func (l OrderLine) Subtotal() Money {
	return l.UnitPrice * Money(l.Quantity)
}

// Order is a customer purchase of resale inventory. A pending order holds its
// inventory until holdExpiresAt.
type Order struct {
	id            string
	customerID    string
	lines         []OrderLine
	status        OrderStatus
	holdExpiresAt time.Time
	cancelReason  string
	createdAt     time.Time
	updatedAt     time.Time
	paidAt        *time.Time
	closedAt      *time.Time
}

// NewOrder places a pending order whose inventory hold lasts holdFor.
func NewOrder(id, customerID string, lines []OrderLine, holdFor time.Duration) (*Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewValidationError("id", "Order id cannot be empty")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, NewValidationError("customer_id", "Customer id cannot be empty")
	}
	if len(lines) == 0 {
		return nil, NewValidationError("lines", "Order must contain at least one line")
	}
	for _, l := range lines {
		if strings.TrimSpace(l.ListingID) == "" {
			return nil, NewValidationError("listing_id", "Order line listing id cannot be empty")
		}
		if l.Quantity <= 0 {
			return nil, NewValidationError("quantity", "Order line quantity must be positive")
		}
		if l.UnitPrice < 0 {
			return nil, NewValidationError("unit_price", "Order line price cannot be negative")
		}
	}
	if holdFor <= 0 {
		return nil, NewValidationError("hold", "Inventory hold must be positive")
	}

	now := time.Now().UTC()
	return &Order{
		id:            id,
		customerID:    customerID,
		lines:         append([]OrderLine(nil), lines...),
		status:        OrderPending,
		holdExpiresAt: now.Add(holdFor),
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func (o *Order) ID() string               { return o.id }
func (o *Order) CustomerID() string       { return o.customerID }
func (o *Order) Status() OrderStatus      { return o.status }
func (o *Order) HoldExpiresAt() time.Time { return o.holdExpiresAt }
func (o *Order) CancelReason() string     { return o.cancelReason }
func (o *Order) CreatedAt() time.Time     { return o.createdAt }
func (o *Order) UpdatedAt() time.Time     { return o.updatedAt }
func (o *Order) PaidAt() *time.Time       { return o.paidAt }
func (o *Order) ClosedAt() *time.Time     { return o.closedAt }

// Lines returns a copy of the order lines.
func (o *Order) Lines() []OrderLine {
	return append([]OrderLine(nil), o.lines...)
}

// Total sums every line subtotal.
func (o *Order) Total() Money {
	var total Money
	for _, l := range o.lines {
		total += l.Subtotal()
	}
	return total
}

// Closed reports whether the order reached a terminal status.
func (o *Order) Closed() bool {
	return orderTransitions.terminal(o.status)
}

// HoldLapsed reports whether a pending order's inventory hold has run out.
func (o *Order) HoldLapsed(at time.Time) bool {
	return o.status == OrderPending && !at.Before(o.holdExpiresAt)
}

// MarkPaid records payment. A lapsed hold can no longer be paid.
func (o *Order) MarkPaid(at time.Time) error {
	if err := orderTransitions.guard(entityOrder, "mark paid", o.status, OrderPaid); err != nil {
		return err
	}
	if o.HoldLapsed(at) {
		return &InvalidTransitionError{
			Entity:    entityOrder,
			Operation: "mark paid",
			Current:   string(o.status),
			Message:   "Cannot mark paid: inventory hold expired",
		}
	}
	at = at.UTC()
	o.status = OrderPaid
	o.paidAt = &at
	o.updatedAt = at
	return nil
}

// MarkFulfilled closes a paid order once its shipment is delivered.
func (o *Order) MarkFulfilled() error {
	return o.close("mark fulfilled", OrderFulfilled, "")
}

// Cancel closes a pending or paid order.
func (o *Order) Cancel(reason string) error {
	return o.close("cancel", OrderCancelled, strings.TrimSpace(reason))
}

// ExpireHold closes a pending order whose hold lapsed.
func (o *Order) ExpireHold(at time.Time) error {
	if err := orderTransitions.guard(entityOrder, "expire", o.status, OrderExpired); err != nil {
		return err
	}
	if !o.HoldLapsed(at) {
		return &InvalidTransitionError{
			Entity:    entityOrder,
			Operation: "expire",
			Current:   string(o.status),
			Message:   "Cannot expire: inventory hold still active",
		}
	}
	return o.close("expire", OrderExpired, "hold expired")
}

func (o *Order) close(operation string, to OrderStatus, reason string) error {
	if err := orderTransitions.guard(entityOrder, operation, o.status, to); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.status = to
	o.cancelReason = reason
	o.closedAt = &now
	o.updatedAt = now
	return nil
}

// OrderSnapshot is the persisted form of an order.
type OrderSnapshot struct {
	ID            string
	CustomerID    string
	Lines         []OrderLine
	Status        OrderStatus
	HoldExpiresAt time.Time
	CancelReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        *time.Time
	ClosedAt      *time.Time
}

// Snapshot copies the order state for persistence.
func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		ID:            o.id,
		CustomerID:    o.customerID,
		Lines:         o.Lines(),
		Status:        o.status,
		HoldExpiresAt: o.holdExpiresAt,
		CancelReason:  o.cancelReason,
		CreatedAt:     o.createdAt,
		UpdatedAt:     o.updatedAt,
		PaidAt:        o.paidAt,
		ClosedAt:      o.closedAt,
	}
}

// RestoreOrder rebuilds an order loaded from storage.
func RestoreOrder(s OrderSnapshot) *Order {
	return &Order{
		id:            s.ID,
		customerID:    s.CustomerID,
		lines:         append([]OrderLine(nil), s.Lines...),
		status:        s.Status,
		holdExpiresAt: s.HoldExpiresAt,
		cancelReason:  s.CancelReason,
		createdAt:     s.CreatedAt,
		updatedAt:     s.UpdatedAt,
		paidAt:        s.PaidAt,
		closedAt:      s.ClosedAt,
	}
}
