package carrier

import (
	"context"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// LabelIssuer issues prepaid inbound labels without calling a carrier API.
// Tracking numbers are generated locally and the label URL points at the
// configured label host.
type LabelIssuer struct {
	carrier domain.Carrier
	baseURL string
	logger  *zap.Logger
	newID   func() string
}

// NewLabelIssuer builds an issuer for the inbound carrier.
func NewLabelIssuer(inbound, baseURL string, logger *zap.Logger) (*LabelIssuer, error) {
	c, err := domain.ParseCarrier(inbound)
	if err != nil {
		return nil, err
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("carrier: label base url required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelIssuer{
		carrier: c,
		baseURL: baseURL,
		logger:  logger,
		newID: func() string {
			return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:20])
		},
	}, nil
}

// CreateInboundLabel returns a label for the customer to ship requestID's books.
func (l *LabelIssuer) CreateInboundLabel(ctx context.Context, requestID, customerID string) (domain.ShippingLabel, error) {
	if err := ctx.Err(); err != nil {
		return domain.ShippingLabel{}, err
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.ShippingLabel{}, fmt.Errorf("carrier: request id required")
	}

	tracking := strings.ToUpper(string(l.carrier)) + l.newID()
	label := domain.ShippingLabel{
		TrackingNumber: tracking,
		LabelURL:       fmt.Sprintf("%s/%s/%s.pdf", l.baseURL, requestID, tracking),
	}

	l.logger.Info("inbound label issued",
		zap.String("purchase_request_id", requestID),
		zap.String("customer_id", customerID),
		zap.String("carrier", string(l.carrier)),
		zap.String("tracking_number", tracking),
	)
	return label, nil
}

var _ port.ShippingLabelProvider = (*LabelIssuer)(nil)
