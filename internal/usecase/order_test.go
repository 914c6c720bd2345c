package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/book-buyback/internal/core/domain"
)

var testLines = []domain.OrderLine{
	{ListingID: "lst-1", ISBN: "9780441172719", UnitPrice: 899, Quantity: 1},
	{ListingID: "lst-2", ISBN: "9780553293357", UnitPrice: 450, Quantity: 2},
}

func TestOrderService_PlacePayFulfill(t *testing.T) {
	ctx := context.Background()
	events := &publisherMock{}
	svc := NewOrderService(newOrderRepoMock(), testCatalog, events, nil, time.Hour, zaptest.NewLogger(t))

	order, err := svc.PlaceOrder(ctx, "cust-1", testLines)
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	placed, ok := events.last().(domain.OrderEvent)
	if !ok || placed.EventType() != domain.EventOrderPlaced || placed.Total != 3500 {
		t.Fatalf("unexpected placed event %+v", events.last())
	}

	if _, err := svc.MarkFulfilled(ctx, order.ID()); !domain.IsInvalidTransition(err) {
		t.Fatalf("expected fulfilling unpaid order to fail, got %v", err)
	}
	if _, err := svc.MarkPaid(ctx, order.ID()); err != nil {
		t.Fatalf("MarkPaid returned error: %v", err)
	}
	fulfilled, err := svc.MarkFulfilled(ctx, order.ID())
	if err != nil {
		t.Fatalf("MarkFulfilled returned error: %v", err)
	}
	if fulfilled.Status() != domain.OrderFulfilled {
		t.Fatalf("expected fulfilled, got %s", fulfilled.Status())
	}

	want := []string{domain.EventOrderPlaced, domain.EventOrderPaid, domain.EventOrderFulfilled}
	got := events.types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestOrderService_CancelPublishesReason(t *testing.T) {
	ctx := context.Background()
	events := &publisherMock{}
	svc := NewOrderService(newOrderRepoMock(), testCatalog, events, nil, 0, nil)

	order, _ := svc.PlaceOrder(ctx, "cust-1", testLines)
	if _, err := svc.Cancel(ctx, order.ID(), "changed mind"); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	e, ok := events.last().(domain.OrderEvent)
	if !ok || e.EventType() != domain.EventOrderCancelled || e.Reason != "changed mind" {
		t.Fatalf("unexpected cancel event %+v", events.last())
	}
	if _, err := svc.MarkPaid(ctx, order.ID()); !domain.IsInvalidTransition(err) {
		t.Fatalf("expected paying a cancelled order to fail, got %v", err)
	}
}

func TestOrderService_ExpireHolds(t *testing.T) {
	ctx := context.Background()
	repo := newOrderRepoMock()
	events := &publisherMock{}
	svc := NewOrderService(repo, testCatalog, events, nil, 10*time.Minute, zaptest.NewLogger(t))

	stale, _ := svc.PlaceOrder(ctx, "cust-1", testLines)
	paid, _ := svc.PlaceOrder(ctx, "cust-2", testLines)
	if _, err := svc.MarkPaid(ctx, paid.ID()); err != nil {
		t.Fatalf("MarkPaid returned error: %v", err)
	}

	svc.WithClock(func() time.Time { return time.Now().UTC().Add(time.Hour) })

	if _, err := svc.MarkPaid(ctx, stale.ID()); err == nil || err.Error() != "Cannot mark paid: inventory hold expired" {
		t.Fatalf("expected lapsed hold to block payment, got %v", err)
	}

	expired, err := svc.ExpireHolds(ctx, 10)
	if err != nil {
		t.Fatalf("ExpireHolds returned error: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired order, got %d", expired)
	}

	got, _ := svc.GetOrder(ctx, stale.ID())
	if got.Status() != domain.OrderExpired {
		t.Fatalf("expected expired, got %s", got.Status())
	}
	stillPaid, _ := svc.GetOrder(ctx, paid.ID())
	if stillPaid.Status() != domain.OrderPaid {
		t.Fatalf("paid order must not expire, got %s", stillPaid.Status())
	}
	if e, ok := events.last().(domain.OrderEvent); !ok || e.EventType() != domain.EventOrderExpired {
		t.Fatalf("expected order.expired, got %v", events.types())
	}

	again, err := svc.ExpireHolds(ctx, 10)
	if err != nil || again != 0 {
		t.Fatalf("expected second sweep to expire nothing, got %d (%v)", again, err)
	}
}

func TestOrderService_PricesLinesFromCatalog(t *testing.T) {
	ctx := context.Background()
	svc := NewOrderService(newOrderRepoMock(), testCatalog, nil, nil, time.Hour, nil)

	order, err := svc.PlaceOrder(ctx, "cust-1", []domain.OrderLine{
		{ListingID: "forged", ISBN: "978-0441172719", UnitPrice: 0, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	lines := order.Lines()
	if len(lines) != 1 || lines[0].UnitPrice != 1000 || lines[0].ListingID != "9780441172719" || lines[0].ISBN != "9780441172719" {
		t.Fatalf("expected catalog pricing, got %+v", lines)
	}
	if order.Total() != 3000 {
		t.Fatalf("expected total 3000, got %d", order.Total())
	}

	_, err = svc.PlaceOrder(ctx, "cust-1", []domain.OrderLine{{ISBN: "9780000000000", UnitPrice: 1, Quantity: 1}})
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound for unlisted isbn, got %v", err)
	}
}

func TestOrderService_NotFound(t *testing.T) {
	svc := NewOrderService(newOrderRepoMock(), testCatalog, nil, nil, time.Minute, nil)
	if _, err := svc.MarkPaid(context.Background(), "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := svc.PlaceOrder(context.Background(), "cust-1", nil); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
