package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// DefaultEstimateValidity is how long an intake quote can be submitted.
const DefaultEstimateValidity = 14 * 24 * time.Hour

// EstimateService quotes intake offers assuming every book arrives in good condition.
type EstimateService struct {
	catalog  port.BookCatalog
	validity time.Duration
	now      func() time.Time
}

// NewEstimateService constructs an EstimateService. A non-positive validity uses DefaultEstimateValidity.
func NewEstimateService(catalog port.BookCatalog, validity time.Duration) *EstimateService {
	if validity <= 0 {
		validity = DefaultEstimateValidity
	}
	return &EstimateService{catalog: catalog, validity: validity, now: systemClock}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *EstimateService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Estimate sums round2(basePrice * good multiplier) over isbns. Every ISBN must
// be known to the catalog.
func (s *EstimateService) Estimate(ctx context.Context, isbns []string) (domain.Estimate, error) {
	var total domain.Money
	count := 0
	for _, raw := range isbns {
		isbn := domain.NormalizeISBN(raw)
		if isbn == "" {
			continue
		}
		listing, err := s.catalog.LookupISBN(ctx, isbn)
		if err != nil {
			return domain.Estimate{}, fmt.Errorf("lookup isbn %s: %w", isbn, err)
		}
		if listing == nil {
			return domain.Estimate{}, fmt.Errorf("isbn %s: %w", isbn, ErrBookNotFound)
		}
		total += domain.OfferPrice(listing.BasePrice, domain.ConditionGood)
		count++
	}

	now := s.now()
	return domain.NewEstimate(total, count, now, now.Add(s.validity))
}

var _ port.Estimator = (*EstimateService)(nil)
