package domain

import (
	"strings"
	"time"
)

// AppraisalStatus is the lifecycle state of an appraisal.
type AppraisalStatus string

const (
	AppraisalPending    AppraisalStatus = "pending"
	AppraisalInProgress AppraisalStatus = "in_progress"
	AppraisalCompleted  AppraisalStatus = "completed"
)

var appraisalTransitions = transitionTable[AppraisalStatus]{
	AppraisalPending:    {AppraisalInProgress},
	AppraisalInProgress: {AppraisalCompleted},
}

const entityAppraisal = "appraisal"

// Appraisal grades the books received for one purchase request.
type Appraisal struct {
	id                string
	purchaseRequestID string
	status            AppraisalStatus
	books             []AppraisedBook
	createdAt         time.Time
	updatedAt         time.Time
	completedAt       *time.Time
}

// NewAppraisal starts a pending appraisal with no books.
func NewAppraisal(id, purchaseRequestID string) (*Appraisal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewValidationError("id", "Appraisal id cannot be empty")
	}
	purchaseRequestID = strings.TrimSpace(purchaseRequestID)
	if purchaseRequestID == "" {
		return nil, NewValidationError("purchase_request_id", "Purchase request id cannot be empty")
	}

	now := time.Now().UTC()
	return &Appraisal{
		id:                id,
		purchaseRequestID: purchaseRequestID,
		status:            AppraisalPending,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

func (a *Appraisal) ID() string                { return a.id }
func (a *Appraisal) PurchaseRequestID() string { return a.purchaseRequestID }
func (a *Appraisal) Status() AppraisalStatus   { return a.status }
func (a *Appraisal) CreatedAt() time.Time      { return a.createdAt }
func (a *Appraisal) UpdatedAt() time.Time      { return a.updatedAt }
func (a *Appraisal) CompletedAt() *time.Time   { return a.completedAt }
func (a *Appraisal) BookCount() int            { return len(a.books) }

// Books returns a copy of the appraised books.
func (a *Appraisal) Books() []AppraisedBook {
	return append([]AppraisedBook(nil), a.books...)
}

// TotalOffer sums the offer price of every book.
func (a *Appraisal) TotalOffer() Money {
	var total Money
	for _, b := range a.books {
		total += b.OfferPrice
	}
	return total
}

// AddBook appends a graded copy. The first book moves a pending appraisal to
// in_progress. A completed appraisal rejects new books.
func (a *Appraisal) AddBook(book AppraisedBook) error {
	if a.status == AppraisalCompleted {
		return &InvalidTransitionError{Entity: entityAppraisal, Operation: "add book", Current: string(a.status)}
	}
	if book.ISBN == "" {
		return NewValidationError("isbn", "ISBN cannot be empty")
	}

	if a.status == AppraisalPending {
		if err := appraisalTransitions.guard(entityAppraisal, "add book", a.status, AppraisalInProgress); err != nil {
			return err
		}
		a.status = AppraisalInProgress
	}

	a.books = append(a.books, book)
	a.updatedAt = time.Now().UTC()
	return nil
}

// Complete closes the appraisal. It requires at least one book.
func (a *Appraisal) Complete() error {
	if a.status == AppraisalCompleted {
		return &InvalidTransitionError{Entity: entityAppraisal, Operation: "complete", Current: string(a.status)}
	}
	if len(a.books) == 0 {
		return &InvalidTransitionError{
			Entity:    entityAppraisal,
			Operation: "complete",
			Current:   string(a.status),
			Message:   "Cannot complete appraisal with no books",
		}
	}
	if err := appraisalTransitions.guard(entityAppraisal, "complete", a.status, AppraisalCompleted); err != nil {
		return err
	}

	now := time.Now().UTC()
	a.status = AppraisalCompleted
	a.completedAt = &now
	a.updatedAt = now
	return nil
}

// AppraisalSnapshot is the persisted form of an appraisal.
type AppraisalSnapshot struct {
	ID                string
	PurchaseRequestID string
	Status            AppraisalStatus
	Books             []AppraisedBook
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

// Snapshot copies the appraisal state for persistence.
func (a *Appraisal) Snapshot() AppraisalSnapshot {
	return AppraisalSnapshot{
		ID:                a.id,
		PurchaseRequestID: a.purchaseRequestID,
		Status:            a.status,
		Books:             a.Books(),
		CreatedAt:         a.createdAt,
		UpdatedAt:         a.updatedAt,
		CompletedAt:       a.completedAt,
	}
}

// RestoreAppraisal rebuilds an appraisal loaded from storage.
func RestoreAppraisal(s AppraisalSnapshot) *Appraisal {
	return &Appraisal{
		id:                s.ID,
		purchaseRequestID: s.PurchaseRequestID,
		status:            s.Status,
		books:             append([]AppraisedBook(nil), s.Books...),
		createdAt:         s.CreatedAt,
		updatedAt:         s.UpdatedAt,
		completedAt:       s.CompletedAt,
	}
}
