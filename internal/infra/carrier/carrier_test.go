package carrier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/book-buyback/internal/core/domain"
)

func TestTrackingURLDefaults(t *testing.T) {
	urls := NewTrackingURLs(nil)

	cases := map[domain.Carrier]string{
		domain.CarrierUPS:   "https://www.ups.com/track?tracknum=1Z999",
		domain.CarrierUSPS:  "https://tools.usps.com/go/TrackConfirmAction?tLabels=1Z999",
		domain.CarrierFedEx: "https://www.fedex.com/fedextrack/?trknbr=1Z999",
		domain.CarrierDHL:   "https://www.dhl.com/en/express/tracking.html?AWB=1Z999",
	}
	for c, want := range cases {
		got, err := urls.TrackingURL(c, " 1Z999 ")
		if err != nil {
			t.Fatalf("%s: unexpected error %v", c, err)
		}
		if got != want {
			t.Fatalf("%s: expected %s, got %s", c, want, got)
		}
	}
}

func TestTrackingURLOverridesAndEscapes(t *testing.T) {
	urls := NewTrackingURLs(map[domain.Carrier]string{domain.CarrierDHL: "https://dhl.test/t/%s"})

	got, err := urls.TrackingURL(domain.CarrierDHL, "AB 12&3")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got != "https://dhl.test/t/AB+12%263" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestTrackingURLRejectsUnknownCarrier(t *testing.T) {
	urls := NewTrackingURLs(nil)

	if _, err := urls.TrackingURL("pigeon", "1"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := urls.TrackingURL(domain.CarrierUPS, " "); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for blank number, got %v", err)
	}
}

func TestLabelIssuerCreatesLabel(t *testing.T) {
	issuer, err := NewLabelIssuer("USPS", "https://labels.test/inbound/", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	issuer.newID = func() string { return "0001" }

	label, err := issuer.CreateInboundLabel(context.Background(), "pr-1", "cust-1")
	if err != nil {
		t.Fatalf("create label: %v", err)
	}
	if label.TrackingNumber != "USPS0001" {
		t.Fatalf("unexpected tracking number %s", label.TrackingNumber)
	}
	if label.LabelURL != "https://labels.test/inbound/pr-1/USPS0001.pdf" {
		t.Fatalf("unexpected label url %s", label.LabelURL)
	}
}

func TestLabelIssuerGeneratesDistinctNumbers(t *testing.T) {
	issuer, err := NewLabelIssuer("ups", "https://labels.test", nil)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	a, _ := issuer.CreateInboundLabel(context.Background(), "pr-1", "cust-1")
	b, _ := issuer.CreateInboundLabel(context.Background(), "pr-1", "cust-1")
	if a.TrackingNumber == b.TrackingNumber {
		t.Fatalf("expected distinct tracking numbers")
	}
	if !strings.HasPrefix(a.TrackingNumber, "UPS") || len(a.TrackingNumber) != 23 {
		t.Fatalf("unexpected tracking number %s", a.TrackingNumber)
	}
}

func TestLabelIssuerValidation(t *testing.T) {
	if _, err := NewLabelIssuer("pigeon", "https://labels.test", nil); !domain.IsValidation(err) {
		t.Fatalf("expected carrier validation error, got %v", err)
	}
	if _, err := NewLabelIssuer("ups", " ", nil); err == nil {
		t.Fatal("expected base url error")
	}

	issuer, _ := NewLabelIssuer("ups", "https://labels.test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := issuer.CreateInboundLabel(ctx, "pr-1", "c"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
