package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// AddBookInput describes one graded copy. BasePrice overrides the catalog price when set.
type AddBookInput struct {
	ISBN      string
	Condition string
	Title     string
	BasePrice *domain.Money
}

// AppraisalService grades the books received for purchase requests.
type AppraisalService struct {
	appraisals port.AppraisalRepository
	requests   port.PurchaseRequestRepository
	catalog    port.BookCatalog
	events     port.EventPublisher
	locker     port.EntityLocker
	logger     *zap.Logger
}

// NewAppraisalService constructs an AppraisalService.
func NewAppraisalService(appraisals port.AppraisalRepository, requests port.PurchaseRequestRepository, catalog port.BookCatalog, events port.EventPublisher, locker port.EntityLocker, logger *zap.Logger) *AppraisalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &AppraisalService{
		appraisals: appraisals,
		requests:   requests,
		catalog:    catalog,
		events:     events,
		locker:     locker,
		logger:     logger,
	}
}

// GetAppraisal loads an appraisal by id.
func (s *AppraisalService) GetAppraisal(ctx context.Context, id string) (*domain.Appraisal, error) {
	return s.load(ctx, id)
}

// GetByPurchaseRequest loads the appraisal opened for a purchase request.
func (s *AppraisalService) GetByPurchaseRequest(ctx context.Context, purchaseRequestID string) (*domain.Appraisal, error) {
	a, err := s.appraisals.FindByPurchaseRequestID(ctx, strings.TrimSpace(purchaseRequestID))
	if err != nil {
		return nil, fmt.Errorf("find appraisal by purchase request: %w", err)
	}
	if a == nil {
		return nil, ErrAppraisalNotFound
	}
	return a, nil
}

// ListByStatus returns appraisals in the given status.
func (s *AppraisalService) ListByStatus(ctx context.Context, status domain.AppraisalStatus) ([]*domain.Appraisal, error) {
	appraisals, err := s.appraisals.FindByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list appraisals: %w", err)
	}
	return appraisals, nil
}

// StartAppraisal opens a pending appraisal for a received purchase request.
func (s *AppraisalService) StartAppraisal(ctx context.Context, purchaseRequestID string) (*domain.Appraisal, error) {
	purchaseRequestID = strings.TrimSpace(purchaseRequestID)

	var appraisal *domain.Appraisal
	err := withEntityLock(ctx, s.locker, lockKey("appraisal-request", purchaseRequestID), func() error {
		request, err := s.requests.FindByID(ctx, purchaseRequestID)
		if err != nil {
			return fmt.Errorf("find purchase request: %w", err)
		}
		if request == nil {
			return ErrPurchaseRequestNotFound
		}
		if request.Status() != domain.PurchaseRequestReceived {
			return ErrRequestNotReceived
		}

		existing, err := s.appraisals.FindByPurchaseRequestID(ctx, purchaseRequestID)
		if err != nil {
			return fmt.Errorf("find appraisal by purchase request: %w", err)
		}
		if existing != nil {
			return ErrAppraisalExists
		}

		appraisal, err = domain.NewAppraisal(uuid.NewString(), purchaseRequestID)
		if err != nil {
			return err
		}
		if err := s.appraisals.Save(ctx, appraisal); err != nil {
			return fmt.Errorf("save appraisal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appraisal started",
		zap.String("appraisal_id", appraisal.ID()),
		zap.String("purchase_request_id", purchaseRequestID),
	)
	return appraisal, nil
}

// AddBook grades one copy and appends it to the appraisal.
func (s *AppraisalService) AddBook(ctx context.Context, appraisalID string, input AddBookInput) (*domain.Appraisal, error) {
	condition, err := domain.ParseBookCondition(input.Condition)
	if err != nil {
		return nil, err
	}

	isbn := domain.NormalizeISBN(input.ISBN)
	if isbn == "" {
		return nil, domain.NewValidationError("isbn", "ISBN cannot be empty")
	}

	title := strings.TrimSpace(input.Title)
	var base domain.Money
	if input.BasePrice != nil {
		base = *input.BasePrice
	} else {
		listing, err := s.catalog.LookupISBN(ctx, isbn)
		if err != nil {
			return nil, fmt.Errorf("lookup isbn %s: %w", isbn, err)
		}
		if listing == nil {
			return nil, fmt.Errorf("isbn %s: %w", isbn, ErrBookNotFound)
		}
		base = listing.BasePrice
		if title == "" {
			title = listing.Title
		}
	}

	book, err := domain.NewAppraisedBook(isbn, title, condition, base)
	if err != nil {
		return nil, err
	}

	var appraisal *domain.Appraisal
	err = withEntityLock(ctx, s.locker, lockKey("appraisal", appraisalID), func() error {
		var err error
		appraisal, err = s.load(ctx, appraisalID)
		if err != nil {
			return err
		}
		if err := appraisal.AddBook(book); err != nil {
			return err
		}
		if err := s.appraisals.Save(ctx, appraisal); err != nil {
			return fmt.Errorf("save appraisal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appraisal, nil
}

// CompleteAppraisal closes the appraisal and publishes appraisal.completed.
func (s *AppraisalService) CompleteAppraisal(ctx context.Context, appraisalID string) (*domain.Appraisal, error) {
	var appraisal *domain.Appraisal
	err := withEntityLock(ctx, s.locker, lockKey("appraisal", appraisalID), func() error {
		var err error
		appraisal, err = s.load(ctx, appraisalID)
		if err != nil {
			return err
		}
		if err := appraisal.Complete(); err != nil {
			return err
		}
		if err := s.appraisals.Save(ctx, appraisal); err != nil {
			return fmt.Errorf("save appraisal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appraisal completed",
		zap.String("appraisal_id", appraisal.ID()),
		zap.Int("book_count", appraisal.BookCount()),
		zap.String("total_offer", appraisal.TotalOffer().String()),
	)
	publishEvent(ctx, s.events, s.logger, domain.NewAppraisalCompletedEvent(appraisal))
	return appraisal, nil
}

// HandlePurchaseRequestReceived opens an appraisal for every checked-in request.
// It is a no-op when one already exists.
func (s *AppraisalService) HandlePurchaseRequestReceived(ctx context.Context, event domain.Event) error {
	received, ok := event.(domain.PurchaseRequestReceivedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	_, err := s.StartAppraisal(ctx, received.RequestID)
	if errors.Is(err, ErrAppraisalExists) {
		return nil
	}
	return err
}

func (s *AppraisalService) load(ctx context.Context, id string) (*domain.Appraisal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("appraisal_id", "Appraisal id cannot be empty")
	}
	a, err := s.appraisals.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find appraisal: %w", err)
	}
	if a == nil {
		return nil, ErrAppraisalNotFound
	}
	return a, nil
}
