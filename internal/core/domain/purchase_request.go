package domain

import (
	"strings"
	"time"
)

// PurchaseRequestStatus is the lifecycle state of a customer's buyback request.
type PurchaseRequestStatus string

const (
	PurchaseRequestDraft     PurchaseRequestStatus = "draft"
	PurchaseRequestSubmitted PurchaseRequestStatus = "submitted"
	PurchaseRequestReceived  PurchaseRequestStatus = "received"
	PurchaseRequestAccepted  PurchaseRequestStatus = "accepted"
	PurchaseRequestRejected  PurchaseRequestStatus = "rejected"
)

var purchaseRequestTransitions = transitionTable[PurchaseRequestStatus]{
	PurchaseRequestDraft:     {PurchaseRequestSubmitted},
	PurchaseRequestSubmitted: {PurchaseRequestReceived},
	PurchaseRequestReceived:  {PurchaseRequestAccepted, PurchaseRequestRejected},
}

const entityPurchaseRequest = "purchase request"

// PaymentMethod is how an accepted buyback is paid out.
type PaymentMethod string

const (
	PaymentACH         PaymentMethod = "ach"
	PaymentStoreCredit PaymentMethod = "store_credit"
)

// ParsePaymentMethod validates a payout method.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	switch m {
	case PaymentACH, PaymentStoreCredit:
		return m, nil
	}
	return "", NewValidationError("payment_method", "Invalid payment method: "+value)
}

// Estimate is the intake quote shown to the customer before shipping books in.
type Estimate struct {
	Amount       Money
	BookCount    int
	CalculatedAt time.Time
	ExpiresAt    time.Time
}

// NewEstimate validates an intake quote.
func NewEstimate(amount Money, bookCount int, calculatedAt, expiresAt time.Time) (Estimate, error) {
	if amount < 0 {
		return Estimate{}, NewValidationError("amount", "Estimate amount cannot be negative")
	}
	if bookCount <= 0 {
		return Estimate{}, NewValidationError("book_count", "Estimate must cover at least one book")
	}
	if !expiresAt.After(calculatedAt) {
		return Estimate{}, NewValidationError("expires_at", "Estimate must expire after it is calculated")
	}
	return Estimate{Amount: amount, BookCount: bookCount, CalculatedAt: calculatedAt.UTC(), ExpiresAt: expiresAt.UTC()}, nil
}

// Expired reports whether the quote has lapsed at the given instant.
func (e Estimate) Expired(at time.Time) bool {
	return !at.Before(e.ExpiresAt)
}

// ShippingLabel is the prepaid inbound label issued on submission.
type ShippingLabel struct {
	TrackingNumber string
	LabelURL       string
}

// PurchaseRequest is a customer's offer to sell a set of books.
type PurchaseRequest struct {
	id              string
	customerID      string
	isbns           []string
	status          PurchaseRequestStatus
	estimate        *Estimate
	trackingNumber  string
	labelURL        string
	acceptedAmount  Money
	paymentMethod   PaymentMethod
	rejectionReason string
	createdAt       time.Time
	updatedAt       time.Time
	submittedAt     *time.Time
	receivedAt      *time.Time
	decidedAt       *time.Time
}

// NewPurchaseRequest creates a draft request for the given ISBNs.
func NewPurchaseRequest(id, customerID string, isbns []string) (*PurchaseRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewValidationError("id", "Purchase request id cannot be empty")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, NewValidationError("customer_id", "Customer id cannot be empty")
	}

	normalized := make([]string, 0, len(isbns))
	for _, isbn := range isbns {
		if n := NormalizeISBN(isbn); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		return nil, NewValidationError("isbns", "Purchase request must list at least one book")
	}

	now := time.Now().UTC()
	return &PurchaseRequest{
		id:         id,
		customerID: customerID,
		isbns:      normalized,
		status:     PurchaseRequestDraft,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

func (r *PurchaseRequest) ID() string                    { return r.id }
func (r *PurchaseRequest) CustomerID() string            { return r.customerID }
func (r *PurchaseRequest) Status() PurchaseRequestStatus { return r.status }
func (r *PurchaseRequest) Estimate() *Estimate           { return r.estimate }
func (r *PurchaseRequest) TrackingNumber() string        { return r.trackingNumber }
func (r *PurchaseRequest) LabelURL() string              { return r.labelURL }
func (r *PurchaseRequest) AcceptedAmount() Money         { return r.acceptedAmount }
func (r *PurchaseRequest) PaymentMethod() PaymentMethod  { return r.paymentMethod }
func (r *PurchaseRequest) RejectionReason() string       { return r.rejectionReason }
func (r *PurchaseRequest) CreatedAt() time.Time          { return r.createdAt }
func (r *PurchaseRequest) UpdatedAt() time.Time          { return r.updatedAt }
func (r *PurchaseRequest) SubmittedAt() *time.Time       { return r.submittedAt }
func (r *PurchaseRequest) ReceivedAt() *time.Time        { return r.receivedAt }
func (r *PurchaseRequest) DecidedAt() *time.Time         { return r.decidedAt }

// ISBNs returns a copy of the requested ISBNs.
func (r *PurchaseRequest) ISBNs() []string {
	return append([]string(nil), r.isbns...)
}

// Submit freezes the draft with its estimate and inbound shipping label.
func (r *PurchaseRequest) Submit(estimate Estimate, trackingNumber, labelURL string) error {
	if err := purchaseRequestTransitions.guard(entityPurchaseRequest, "submit", r.status, PurchaseRequestSubmitted); err != nil {
		return err
	}
	now := time.Now().UTC()
	if estimate.Expired(now) {
		return NewValidationError("estimate", "Estimate has expired")
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return NewValidationError("tracking_number", "Tracking number cannot be empty")
	}

	r.estimate = &estimate
	r.trackingNumber = trackingNumber
	r.labelURL = strings.TrimSpace(labelURL)
	r.status = PurchaseRequestSubmitted
	r.submittedAt = &now
	r.updatedAt = now
	return nil
}

// MarkReceived records that the inbound parcel arrived at the warehouse.
func (r *PurchaseRequest) MarkReceived() error {
	if err := purchaseRequestTransitions.guard(entityPurchaseRequest, "mark received", r.status, PurchaseRequestReceived); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.status = PurchaseRequestReceived
	r.receivedAt = &now
	r.updatedAt = now
	return nil
}

// Accept records the final payout after appraisal.
func (r *PurchaseRequest) Accept(amount Money, method PaymentMethod) error {
	if err := purchaseRequestTransitions.guard(entityPurchaseRequest, "accept", r.status, PurchaseRequestAccepted); err != nil {
		return err
	}
	if amount < 0 {
		return NewValidationError("amount", "Accepted amount cannot be negative")
	}
	if _, err := ParsePaymentMethod(string(method)); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.acceptedAmount = amount
	r.paymentMethod = method
	r.status = PurchaseRequestAccepted
	r.decidedAt = &now
	r.updatedAt = now
	return nil
}

// Reject declines the received books.
func (r *PurchaseRequest) Reject(reason string) error {
	if err := purchaseRequestTransitions.guard(entityPurchaseRequest, "reject", r.status, PurchaseRequestRejected); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.rejectionReason = strings.TrimSpace(reason)
	r.status = PurchaseRequestRejected
	r.decidedAt = &now
	r.updatedAt = now
	return nil
}

// PurchaseRequestSnapshot is the persisted form of a purchase request.
type PurchaseRequestSnapshot struct {
	ID              string
	CustomerID      string
	ISBNs           []string
	Status          PurchaseRequestStatus
	Estimate        *Estimate
	TrackingNumber  string
	LabelURL        string
	AcceptedAmount  Money
	PaymentMethod   PaymentMethod
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SubmittedAt     *time.Time
	ReceivedAt      *time.Time
	DecidedAt       *time.Time
}

// Snapshot copies the request state for persistence.
func (r *PurchaseRequest) Snapshot() PurchaseRequestSnapshot {
	return PurchaseRequestSnapshot{
		ID:              r.id,
		CustomerID:      r.customerID,
		ISBNs:           r.ISBNs(),
		Status:          r.status,
		Estimate:        r.estimate,
		TrackingNumber:  r.trackingNumber,
		LabelURL:        r.labelURL,
		AcceptedAmount:  r.acceptedAmount,
		PaymentMethod:   r.paymentMethod,
		RejectionReason: r.rejectionReason,
		CreatedAt:       r.createdAt,
		UpdatedAt:       r.updatedAt,
		SubmittedAt:     r.submittedAt,
		ReceivedAt:      r.receivedAt,
		DecidedAt:       r.decidedAt,
	}
}

// RestorePurchaseRequest rebuilds a request loaded from storage.
func RestorePurchaseRequest(s PurchaseRequestSnapshot) *PurchaseRequest {
	return &PurchaseRequest{
		id:              s.ID,
		customerID:      s.CustomerID,
		isbns:           append([]string(nil), s.ISBNs...),
		status:          s.Status,
		estimate:        s.Estimate,
		trackingNumber:  s.TrackingNumber,
		labelURL:        s.LabelURL,
		acceptedAmount:  s.AcceptedAmount,
		paymentMethod:   s.PaymentMethod,
		rejectionReason: s.RejectionReason,
		createdAt:       s.CreatedAt,
		updatedAt:       s.UpdatedAt,
		submittedAt:     s.SubmittedAt,
		receivedAt:      s.ReceivedAt,
		decidedAt:       s.DecidedAt,
	}
}
