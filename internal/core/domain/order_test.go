package domain

import (
	"testing"
	"time"
)

func newTestOrder(t *testing.T, hold time.Duration) *Order {
	t.Helper()
	o, err := NewOrder("ord-1", "cust-1", []OrderLine{
		{ListingID: "lst-1", ISBN: "9780441172719", UnitPrice: 750, Quantity: 2},
		{ListingID: "lst-2", ISBN: "9780553293357", UnitPrice: 300, Quantity: 1},
	}, hold)
	if err != nil {
		t.Fatalf("NewOrder returned error: %v", err)
	}
	return o
}

func TestOrder_PayAndFulfill(t *testing.T) {
	o := newTestOrder(t, time.Hour)
	if o.Total() != 1800 {
		t.Fatalf("expected total 18.00, got %s", o.Total())
	}

	if err := o.MarkFulfilled(); err == nil || err.Error() != "Cannot mark fulfilled: current status is pending" {
		t.Fatalf("expected fulfilling unpaid order to fail, got %v", err)
	}
	if err := o.MarkPaid(time.Now()); err != nil {
		t.Fatalf("MarkPaid returned error: %v", err)
	}
	if err := o.MarkFulfilled(); err != nil {
		t.Fatalf("MarkFulfilled returned error: %v", err)
	}
	if !o.Closed() || o.ClosedAt() == nil {
		t.Fatalf("expected fulfilled order to be closed")
	}
	if err := o.Cancel("changed mind"); err == nil {
		t.Fatalf("expected cancelling a fulfilled order to fail")
	}
}

func TestOrder_PayAfterHoldLapsed(t *testing.T) {
	o := newTestOrder(t, time.Minute)

	err := o.MarkPaid(time.Now().Add(2 * time.Minute))
	if err == nil || err.Error() != "Cannot mark paid: inventory hold expired" {
		t.Fatalf("expected lapsed hold to block payment, got %v", err)
	}
	if o.Status() != OrderPending {
		t.Fatalf("expected pending, got %s", o.Status())
	}
}

func TestOrder_ExpireHold(t *testing.T) {
	o := newTestOrder(t, time.Minute)

	if err := o.ExpireHold(time.Now()); err == nil || err.Error() != "Cannot expire: inventory hold still active" {
		t.Fatalf("expected active hold to block expiry, got %v", err)
	}

	later := time.Now().Add(time.Hour)
	if !o.HoldLapsed(later) {
		t.Fatalf("expected hold to be lapsed")
	}
	if err := o.ExpireHold(later); err != nil {
		t.Fatalf("ExpireHold returned error: %v", err)
	}
	if o.Status() != OrderExpired || o.CancelReason() != "hold expired" {
		t.Fatalf("unexpected state %s %q", o.Status(), o.CancelReason())
	}
	if o.HoldLapsed(later) {
		t.Fatalf("closed orders have no hold")
	}
}

func TestOrder_CancelPaid(t *testing.T) {
	o := newTestOrder(t, time.Hour)
	_ = o.MarkPaid(time.Now())

	if err := o.Cancel(" out of stock "); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if o.Status() != OrderCancelled || o.CancelReason() != "out of stock" {
		t.Fatalf("unexpected state %s %q", o.Status(), o.CancelReason())
	}
	if err := o.ExpireHold(time.Now().Add(2 * time.Hour)); err == nil {
		t.Fatalf("expected expiring a cancelled order to fail")
	}
}

func TestNewOrder_Validation(t *testing.T) {
	if _, err := NewOrder("ord-1", "cust-1", nil, time.Hour); err == nil {
		t.Fatalf("expected empty order to fail")
	}
	if _, err := NewOrder("ord-1", "cust-1", []OrderLine{{ListingID: "l", Quantity: 0}}, time.Hour); err == nil {
		t.Fatalf("expected zero quantity to fail")
	}
	if _, err := NewOrder("ord-1", "cust-1", []OrderLine{{ListingID: "l", Quantity: 1}}, 0); err == nil {
		t.Fatalf("expected non-positive hold to fail")
	}
}

func TestOrderEvent_CarriesType(t *testing.T) {
	o := newTestOrder(t, time.Hour)
	e := NewOrderEvent(EventOrderPlaced, o)
	if e.EventType() != EventOrderPlaced || e.Total != 1800 || e.EventID() == "" {
		t.Fatalf("unexpected event %+v", e)
	}
}
