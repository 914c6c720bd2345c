package domain

import (
	"testing"
	"time"
)

func validEstimate(t *testing.T) Estimate {
	t.Helper()
	now := time.Now()
	est, err := NewEstimate(1200, 2, now, now.Add(14*24*time.Hour))
	if err != nil {
		t.Fatalf("NewEstimate returned error: %v", err)
	}
	return est
}

func newDraft(t *testing.T) *PurchaseRequest {
	t.Helper()
	r, err := NewPurchaseRequest("pr-1", "cust-1", []string{"978-0441172719", "9780553293357"})
	if err != nil {
		t.Fatalf("NewPurchaseRequest returned error: %v", err)
	}
	return r
}

func TestPurchaseRequest_SubmitTwice(t *testing.T) {
	r := newDraft(t)

	if err := r.Submit(validEstimate(t), "TRK1", "https://labels.example/TRK1"); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if r.Status() != PurchaseRequestSubmitted || r.SubmittedAt() == nil {
		t.Fatalf("expected submitted with timestamp, got %s", r.Status())
	}

	err := r.Submit(validEstimate(t), "TRK2", "")
	if err == nil || err.Error() != "Cannot submit: current status is submitted" {
		t.Fatalf("expected second submit to fail, got %v", err)
	}
	if r.TrackingNumber() != "TRK1" {
		t.Fatalf("failed submit must keep the first label, got %s", r.TrackingNumber())
	}
}

func TestPurchaseRequest_SubmitRejectsExpiredEstimate(t *testing.T) {
	r := newDraft(t)
	past := time.Now().Add(-48 * time.Hour)
	est, err := NewEstimate(100, 1, past, past.Add(time.Hour))
	if err != nil {
		t.Fatalf("NewEstimate returned error: %v", err)
	}

	if err := r.Submit(est, "TRK1", ""); err == nil {
		t.Fatalf("expected expired estimate to fail")
	}
	if r.Status() != PurchaseRequestDraft {
		t.Fatalf("expected draft, got %s", r.Status())
	}
}

func TestPurchaseRequest_AcceptPath(t *testing.T) {
	r := newDraft(t)
	_ = r.Submit(validEstimate(t), "TRK1", "")

	if err := r.Accept(1000, PaymentACH); err == nil {
		t.Fatalf("accept before receipt must fail")
	}
	if err := r.MarkReceived(); err != nil {
		t.Fatalf("MarkReceived returned error: %v", err)
	}
	if err := r.Accept(1000, "cheque"); err == nil {
		t.Fatalf("expected invalid payment method to fail")
	}
	if err := r.Accept(1000, PaymentStoreCredit); err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	if r.Status() != PurchaseRequestAccepted || r.AcceptedAmount() != 1000 {
		t.Fatalf("unexpected state %s %s", r.Status(), r.AcceptedAmount())
	}
	if err := r.Reject("late"); err == nil || err.Error() != "Cannot reject: current status is accepted" {
		t.Fatalf("expected reject after accept to fail, got %v", err)
	}
}

func TestPurchaseRequest_Reject(t *testing.T) {
	r := newDraft(t)
	_ = r.Submit(validEstimate(t), "TRK1", "")
	_ = r.MarkReceived()

	if err := r.Reject("  water damage "); err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	if r.RejectionReason() != "water damage" || r.DecidedAt() == nil {
		t.Fatalf("unexpected rejection state %q", r.RejectionReason())
	}
}

func TestNewPurchaseRequest_Validation(t *testing.T) {
	if _, err := NewPurchaseRequest("pr-1", "cust-1", []string{" ", ""}); err == nil {
		t.Fatalf("expected empty isbn list to fail")
	}
	if _, err := NewPurchaseRequest("pr-1", "", []string{"1"}); err == nil {
		t.Fatalf("expected empty customer to fail")
	}
	if _, err := NewEstimate(100, 0, time.Now(), time.Now().Add(time.Hour)); err == nil {
		t.Fatalf("expected zero book count to fail")
	}
}
