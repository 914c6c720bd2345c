package port

import (
	"context"

	"github.com/arklim/book-buyback/internal/core/domain"
)

// BookCatalog resolves catalog pricing for an ISBN. Unknown ISBNs return (nil, nil).
type BookCatalog interface {
	LookupISBN(ctx context.Context, isbn string) (*domain.BookListing, error)
}

// ShippingLabelProvider issues prepaid inbound labels for purchase requests.
type ShippingLabelProvider interface {
	CreateInboundLabel(ctx context.Context, requestID, customerID string) (domain.ShippingLabel, error)
}

// Estimator quotes an intake offer for a list of ISBNs.
type Estimator interface {
	Estimate(ctx context.Context, isbns []string) (domain.Estimate, error)
}
