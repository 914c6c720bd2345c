package domain

import (
	"strings"
	"time"
)

// ShipmentStatus is the lifecycle state of an outbound shipment.
type ShipmentStatus string

const (
	ShipmentPending    ShipmentStatus = "pending"
	ShipmentPicking    ShipmentStatus = "picking"
	ShipmentPacked     ShipmentStatus = "packed"
	ShipmentDispatched ShipmentStatus = "dispatched"
	ShipmentInTransit  ShipmentStatus = "in_transit"
	ShipmentDelivered  ShipmentStatus = "delivered"
)

var shipmentTransitions = transitionTable[ShipmentStatus]{
	ShipmentPending:    {ShipmentPicking},
	ShipmentPicking:    {ShipmentPacked},
	ShipmentPacked:     {ShipmentDispatched},
	ShipmentDispatched: {ShipmentInTransit},
	ShipmentInTransit:  {ShipmentDelivered},
}

const entityShipment = "shipment"

// Carrier identifies a parcel carrier.
type Carrier string

const (
	CarrierUSPS  Carrier = "usps"
	CarrierUPS   Carrier = "ups"
	CarrierFedEx Carrier = "fedex"
	CarrierDHL   Carrier = "dhl"
)

// ParseCarrier validates a carrier code, case-insensitively.
func ParseCarrier(value string) (Carrier, error) {
	c := Carrier(strings.ToLower(strings.TrimSpace(value)))
	switch c {
	case CarrierUSPS, CarrierUPS, CarrierFedEx, CarrierDHL:
		return c, nil
	}
	return "", NewValidationError("carrier", "Unsupported carrier: "+value)
}

// TrackingURLBuilder formats the public tracking link for a parcel.
type TrackingURLBuilder interface {
	TrackingURL(carrier Carrier, trackingNumber string) (string, error)
}

// Address is a postal destination.
type Address struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// NewAddress trims every field and checks the required ones.
func NewAddress(a Address) (Address, error) {
	a = Address{
		Name:       strings.TrimSpace(a.Name),
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		Region:     strings.TrimSpace(a.Region),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	switch {
	case a.Line1 == "":
		return Address{}, NewValidationError("line1", "Address line 1 cannot be empty")
	case a.City == "":
		return Address{}, NewValidationError("city", "City cannot be empty")
	case a.PostalCode == "":
		return Address{}, NewValidationError("postal_code", "Postal code cannot be empty")
	case len(a.Country) != 2:
		return Address{}, NewValidationError("country", "Country must be a 2-letter code")
	}
	return a, nil
}

// Shipment moves an order from the warehouse to the customer.
type Shipment struct {
	id             string
	orderID        string
	address        Address
	status         ShipmentStatus
	carrier        Carrier
	trackingNumber string
	trackingURL    string
	createdAt      time.Time
	updatedAt      time.Time
	dispatchedAt   *time.Time
	deliveredAt    *time.Time
}

// NewShipment creates a pending shipment for an order.
func NewShipment(id, orderID string, address Address) (*Shipment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewValidationError("id", "Shipment id cannot be empty")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, NewValidationError("order_id", "Order id cannot be empty")
	}
	addr, err := NewAddress(address)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Shipment{
		id:        id,
		orderID:   orderID,
		address:   addr,
		status:    ShipmentPending,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func (s *Shipment) ID() string               { return s.id }
func (s *Shipment) OrderID() string          { return s.orderID }
func (s *Shipment) Address() Address         { return s.address }
func (s *Shipment) Status() ShipmentStatus   { return s.status }
func (s *Shipment) Carrier() Carrier         { return s.carrier }
func (s *Shipment) TrackingNumber() string   { return s.trackingNumber }
func (s *Shipment) TrackingURL() string      { return s.trackingURL }
func (s *Shipment) CreatedAt() time.Time     { return s.createdAt }
func (s *Shipment) UpdatedAt() time.Time     { return s.updatedAt }
func (s *Shipment) DispatchedAt() *time.Time { return s.dispatchedAt }
func (s *Shipment) DeliveredAt() *time.Time  { return s.deliveredAt }

// StartPicking moves pending -> picking.
func (s *Shipment) StartPicking() error {
	return s.advance("start picking", ShipmentPicking)
}

// MarkPacked moves picking -> packed.
func (s *Shipment) MarkPacked() error {
	return s.advance("mark packed", ShipmentPacked)
}

// Dispatch hands a packed shipment to the carrier and records the tracking link.
func (s *Shipment) Dispatch(carrier Carrier, trackingNumber string, urls TrackingURLBuilder) error {
	if err := shipmentTransitions.guard(entityShipment, "dispatch", s.status, ShipmentDispatched); err != nil {
		return err
	}
	if _, err := ParseCarrier(string(carrier)); err != nil {
		return err
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return NewValidationError("tracking_number", "Tracking number cannot be empty")
	}

	var trackingURL string
	if urls != nil {
		u, err := urls.TrackingURL(carrier, trackingNumber)
		if err != nil {
			return err
		}
		trackingURL = u
	}

	now := time.Now().UTC()
	s.carrier = carrier
	s.trackingNumber = trackingNumber
	s.trackingURL = trackingURL
	s.status = ShipmentDispatched
	s.dispatchedAt = &now
	s.updatedAt = now
	return nil
}

// UpdateInTransit moves dispatched -> in_transit.
func (s *Shipment) UpdateInTransit() error {
	return s.advance("mark in transit", ShipmentInTransit)
}

// MarkDelivered moves in_transit -> delivered and stamps deliveredAt.
func (s *Shipment) MarkDelivered() error {
	if err := s.advance("mark delivered", ShipmentDelivered); err != nil {
		return err
	}
	at := s.updatedAt
	s.deliveredAt = &at
	return nil
}

func (s *Shipment) advance(operation string, to ShipmentStatus) error {
	if err := shipmentTransitions.guard(entityShipment, operation, s.status, to); err != nil {
		return err
	}
	s.status = to
	s.updatedAt = time.Now().UTC()
	return nil
}

// ShipmentSnapshot is the persisted form of a shipment.
type ShipmentSnapshot struct {
	ID             string
	OrderID        string
	Address        Address
	Status         ShipmentStatus
	Carrier        Carrier
	TrackingNumber string
	TrackingURL    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DispatchedAt   *time.Time
	DeliveredAt    *time.Time
}

// Snapshot copies the shipment state for persistence.
func (s *Shipment) Snapshot() ShipmentSnapshot {
	return ShipmentSnapshot{
		ID:             s.id,
		OrderID:        s.orderID,
		Address:        s.address,
		Status:         s.status,
		Carrier:        s.carrier,
		TrackingNumber: s.trackingNumber,
		TrackingURL:    s.trackingURL,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
		DispatchedAt:   s.dispatchedAt,
		DeliveredAt:    s.deliveredAt,
	}
}

// RestoreShipment rebuilds a shipment loaded from storage.
func RestoreShipment(s ShipmentSnapshot) *Shipment {
	return &Shipment{
		id:             s.ID,
		orderID:        s.OrderID,
		address:        s.Address,
		status:         s.Status,
		carrier:        s.Carrier,
		trackingNumber: s.TrackingNumber,
		trackingURL:    s.TrackingURL,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
		dispatchedAt:   s.DispatchedAt,
		deliveredAt:    s.DeliveredAt,
	}
}
