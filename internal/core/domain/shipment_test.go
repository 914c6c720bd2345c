package domain

import (
	"errors"
	"testing"
)

type stubTrackingURLs struct {
	err error
}

func (s stubTrackingURLs) TrackingURL(carrier Carrier, trackingNumber string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://track.example/" + string(carrier) + "/" + trackingNumber, nil
}

func newTestShipment(t *testing.T) *Shipment {
	t.Helper()
	s, err := NewShipment("shp-1", "ord-1", Address{
		Name:       "Ada",
		Line1:      "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "us",
	})
	if err != nil {
		t.Fatalf("NewShipment returned error: %v", err)
	}
	return s
}

func TestShipment_CanonicalPath(t *testing.T) {
	s := newTestShipment(t)
	if s.Address().Country != "US" {
		t.Fatalf("expected normalized country, got %s", s.Address().Country)
	}

	steps := []struct {
		name string
		run  func() error
		want ShipmentStatus
	}{
		{"start picking", s.StartPicking, ShipmentPicking},
		{"mark packed", s.MarkPacked, ShipmentPacked},
		{"dispatch", func() error { return s.Dispatch(CarrierUPS, "1Z999", stubTrackingURLs{}) }, ShipmentDispatched},
		{"in transit", s.UpdateInTransit, ShipmentInTransit},
		{"delivered", s.MarkDelivered, ShipmentDelivered},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s returned error: %v", step.name, err)
		}
		if s.Status() != step.want {
			t.Fatalf("%s: expected %s, got %s", step.name, step.want, s.Status())
		}
	}

	if s.TrackingURL() != "https://track.example/ups/1Z999" {
		t.Fatalf("unexpected tracking url %q", s.TrackingURL())
	}
	if s.DispatchedAt() == nil || s.DeliveredAt() == nil {
		t.Fatalf("expected dispatch and delivery timestamps")
	}
}

func TestShipment_OutOfOrder(t *testing.T) {
	s := newTestShipment(t)

	err := s.MarkPacked()
	if err == nil || err.Error() != "Cannot mark packed: current status is pending" {
		t.Fatalf("expected packing a pending shipment to fail, got %v", err)
	}

	err = s.Dispatch(CarrierUSPS, "9400", nil)
	if err == nil || !IsInvalidTransition(err) {
		t.Fatalf("expected dispatching a pending shipment to fail, got %v", err)
	}

	if err := s.MarkDelivered(); err == nil {
		t.Fatalf("expected delivery from pending to fail")
	}
	if s.Status() != ShipmentPending {
		t.Fatalf("failed transitions must not change state, got %s", s.Status())
	}
}

func TestShipment_DispatchValidation(t *testing.T) {
	s := newTestShipment(t)
	_ = s.StartPicking()
	_ = s.MarkPacked()

	if err := s.Dispatch("pigeon", "1", nil); err == nil {
		t.Fatalf("expected unknown carrier to fail")
	}
	if err := s.Dispatch(CarrierDHL, "  ", nil); err == nil {
		t.Fatalf("expected empty tracking number to fail")
	}

	errTemplate := errors.New("no template")
	if err := s.Dispatch(CarrierDHL, "JD01", stubTrackingURLs{err: errTemplate}); !errors.Is(err, errTemplate) {
		t.Fatalf("expected url builder error, got %v", err)
	}
	if s.Status() != ShipmentPacked {
		t.Fatalf("expected shipment to remain packed, got %s", s.Status())
	}
}

func TestNewAddress_Validation(t *testing.T) {
	cases := map[string]Address{
		"line1":       {City: "X", PostalCode: "1", Country: "US"},
		"city":        {Line1: "1", PostalCode: "1", Country: "US"},
		"postal_code": {Line1: "1", City: "X", Country: "US"},
		"country":     {Line1: "1", City: "X", PostalCode: "1", Country: "USA"},
	}
	for field, addr := range cases {
		_, err := NewAddress(addr)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != field {
			t.Fatalf("expected %s validation error, got %v", field, err)
		}
	}
}
