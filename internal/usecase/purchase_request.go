package usecase

import (
	"context"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// AcceptPurchaseRequestInput records the payout decision.
type AcceptPurchaseRequestInput struct {
	Amount        domain.Money
	PaymentMethod string
}

// PurchaseRequestService runs a customer's buyback request from draft to decision.
type PurchaseRequestService struct {
	requests  port.PurchaseRequestRepository
	estimator port.Estimator
	labels    port.ShippingLabelProvider
	events    port.EventPublisher
	locker    port.EntityLocker
	logger    *zap.Logger
}

// NewPurchaseRequestService constructs a PurchaseRequestService.
func NewPurchaseRequestService(requests port.PurchaseRequestRepository, estimator port.Estimator, labels port.ShippingLabelProvider, events port.EventPublisher, locker port.EntityLocker, logger *zap.Logger) *PurchaseRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &PurchaseRequestService{
		requests:  requests,
		estimator: estimator,
		labels:    labels,
		events:    events,
		locker:    locker,
		logger:    logger,
	}
}

// CreateDraft stores a new draft request for customerID.
func (s *PurchaseRequestService) CreateDraft(ctx context.Context, customerID string, isbns []string) (*domain.PurchaseRequest, error) {
	request, err := domain.NewPurchaseRequest(uuid.NewString(), customerID, isbns)
	if err != nil {
		return nil, err
	}
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("save purchase request: %w", err)
	}
	s.logger.Info("purchase request drafted",
		zap.String("request_id", request.ID()),
		zap.String("customer_id", request.CustomerID()),
		zap.Int("book_count", len(request.ISBNs())),
	)
	return request, nil
}

// GetPurchaseRequest loads a request by id.
func (s *PurchaseRequestService) GetPurchaseRequest(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
	return s.load(ctx, id)
}

// ListByStatus returns requests in the given status.
func (s *PurchaseRequestService) ListByStatus(ctx context.Context, status domain.PurchaseRequestStatus) ([]*domain.PurchaseRequest, error) {
	requests, err := s.requests.FindByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}
	return requests, nil
}

// Submit prices the draft, issues the inbound label and publishes PurchaseRequestSubmitted.
func (s *PurchaseRequestService) Submit(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
	var request *domain.PurchaseRequest
	err := withEntityLock(ctx, s.locker, lockKey("purchase-request", id), func() error {
		var err error
		request, err = s.load(ctx, id)
		if err != nil {
			return err
		}
		if request.Status() != domain.PurchaseRequestDraft {
			// Fail before paying for a label.
			return request.Submit(domain.Estimate{}, "", "")
		}

		estimate, err := s.estimator.Estimate(ctx, request.ISBNs())
		if err != nil {
			return fmt.Errorf("estimate purchase request: %w", err)
		}
		label, err := s.labels.CreateInboundLabel(ctx, request.ID(), request.CustomerID())
		if err != nil {
			return fmt.Errorf("create inbound label: %w", err)
		}

		if err := request.Submit(estimate, label.TrackingNumber, label.LabelURL); err != nil {
			return err
		}
		if err := s.requests.Save(ctx, request); err != nil {
			return fmt.Errorf("save purchase request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request submitted",
		zap.String("request_id", request.ID()),
		zap.String("tracking_number", request.TrackingNumber()),
	)
	publishEvent(ctx, s.events, s.logger, domain.NewPurchaseRequestSubmittedEvent(request))
	return request, nil
}

// MarkReceived checks the inbound parcel in and publishes PurchaseRequestReceived.
func (s *PurchaseRequestService) MarkReceived(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
	request, err := s.transition(ctx, id, func(r *domain.PurchaseRequest) error {
		return r.MarkReceived()
	})
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, s.events, s.logger, domain.NewPurchaseRequestReceivedEvent(request))
	return request, nil
}

// Accept records the payout and publishes PurchaseRequestAccepted.
func (s *PurchaseRequestService) Accept(ctx context.Context, id string, input AcceptPurchaseRequestInput) (*domain.PurchaseRequest, error) {
	method, err := domain.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	request, err := s.transition(ctx, id, func(r *domain.PurchaseRequest) error {
		return r.Accept(input.Amount, method)
	})
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, s.events, s.logger, domain.NewPurchaseRequestAcceptedEvent(request))
	return request, nil
}

// Reject declines the received books and publishes PurchaseRequestRejected.
func (s *PurchaseRequestService) Reject(ctx context.Context, id, reason string) (*domain.PurchaseRequest, error) {
	request, err := s.transition(ctx, id, func(r *domain.PurchaseRequest) error {
		return r.Reject(reason)
	})
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, s.events, s.logger, domain.NewPurchaseRequestRejectedEvent(request))
	return request, nil
}

func (s *PurchaseRequestService) transition(ctx context.Context, id string, apply func(*domain.PurchaseRequest) error) (*domain.PurchaseRequest, error) {
	var request *domain.PurchaseRequest
	err := withEntityLock(ctx, s.locker, lockKey("purchase-request", id), func() error {
		var err error
		request, err = s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(request); err != nil {
			return err
		}
		if err := s.requests.Save(ctx, request); err != nil {
			return fmt.Errorf("save purchase request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase request updated",
		zap.String("request_id", request.ID()),
		zap.String("status", string(request.Status())),
	)
	return request, nil
}

func (s *PurchaseRequestService) load(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("request_id", "Purchase request id cannot be empty")
	}
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find purchase request: %w", err)
	}
	if request == nil {
		return nil, ErrPurchaseRequestNotFound
	}
	return request, nil
}
