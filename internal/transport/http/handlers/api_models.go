package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/book-buyback/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse describes the liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse lists the result of each dependency check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// RolePayload is the API view of a role.
type RolePayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	AppliesTo   []string  `json:"applies_to"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleCreateRequest defines the payload for creating a role.
type RoleCreateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
	AppliesTo   []string `json:"applies_to" binding:"required"`
}

// RoleUpdateRequest carries optional role changes.
type RoleUpdateRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Permissions *[]string `json:"permissions"`
}

// PermissionRequest names a single permission to grant.
type PermissionRequest struct {
	Permission string `json:"permission" binding:"required"`
}

// RoleAssignRequest grants a role to a user.
type RoleAssignRequest struct {
	RoleID    string     `json:"role_id" binding:"required"`
	UserKind  string     `json:"user_kind" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
	Scope     *string    `json:"scope"`
}

// RoleAssignmentPayload is the API view of a role assignment.
type RoleAssignmentPayload struct {
	UserID     string     `json:"user_id"`
	RoleID     string     `json:"role_id"`
	AssignedBy string     `json:"assigned_by"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Scope      *string    `json:"scope,omitempty"`
}

// PermissionsResponse lists effective permissions.
type PermissionsResponse struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

// AppraisalCreateRequest opens an appraisal for a received purchase request.
type AppraisalCreateRequest struct {
	PurchaseRequestID string `json:"purchase_request_id" binding:"required"`
}

// AppraisalBookRequest grades one copy.
type AppraisalBookRequest struct {
	ISBN      string        `json:"isbn" binding:"required"`
	Condition string        `json:"condition" binding:"required"`
	Title     string        `json:"title"`
	BasePrice *domain.Money `json:"base_price"`
}

// AppraisedBookPayload is one graded copy.
type AppraisedBookPayload struct {
	ISBN        string       `json:"isbn"`
	Title       string       `json:"title,omitempty"`
	Condition   string       `json:"condition"`
	BasePrice   domain.Money `json:"base_price"`
	OfferPrice  domain.Money `json:"offer_price"`
	AppraisedAt time.Time    `json:"appraised_at"`
}

// AppraisalPayload is the API view of an appraisal.
type AppraisalPayload struct {
	ID                string                 `json:"id"`
	PurchaseRequestID string                 `json:"purchase_request_id"`
	Status            string                 `json:"status"`
	Books             []AppraisedBookPayload `json:"books"`
	TotalOffer        domain.Money           `json:"total_offer"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
	CompletedAt       *time.Time             `json:"completed_at,omitempty"`
}

// AddressPayload is a postal address on the wire.
type AddressPayload struct {
	Name       string `json:"name"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" binding:"required"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// ShipmentCreateRequest opens a shipment for a paid order.
type ShipmentCreateRequest struct {
	OrderID string         `json:"order_id" binding:"required"`
	Address AddressPayload `json:"address" binding:"required"`
}

// ShipmentDispatchRequest hands the parcel to a carrier.
type ShipmentDispatchRequest struct {
	Carrier        string `json:"carrier" binding:"required"`
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

// ShipmentPayload is the API view of a shipment.
type ShipmentPayload struct {
	ID             string         `json:"id"`
	OrderID        string         `json:"order_id"`
	Status         string         `json:"status"`
	Address        AddressPayload `json:"address"`
	Carrier        string         `json:"carrier,omitempty"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	TrackingURL    string         `json:"tracking_url,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DispatchedAt   *time.Time     `json:"dispatched_at,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
}

// PurchaseRequestCreateRequest drafts a buyback request.
type PurchaseRequestCreateRequest struct {
	ISBNs []string `json:"isbns" binding:"required"`
}

// PurchaseRequestAcceptRequest records the payout decision.
type PurchaseRequestAcceptRequest struct {
	Amount        domain.Money `json:"amount"`
	PaymentMethod string       `json:"payment_method" binding:"required"`
}

// ReasonRequest carries a free-text reason for rejections and cancellations.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// EstimatePayload is an intake quote.
type EstimatePayload struct {
	Amount       domain.Money `json:"amount"`
	BookCount    int          `json:"book_count"`
	CalculatedAt time.Time    `json:"calculated_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// EstimateRequest asks for a quote on a list of ISBNs.
type EstimateRequest struct {
	ISBNs []string `json:"isbns" binding:"required"`
}

// PurchaseRequestPayload is the API view of a purchase request.
type PurchaseRequestPayload struct {
	ID              string           `json:"id"`
	CustomerID      string           `json:"customer_id"`
	ISBNs           []string         `json:"isbns"`
	Status          string           `json:"status"`
	Estimate        *EstimatePayload `json:"estimate,omitempty"`
	TrackingNumber  string           `json:"tracking_number,omitempty"`
	LabelURL        string           `json:"label_url,omitempty"`
	AcceptedAmount  *domain.Money    `json:"accepted_amount,omitempty"`
	PaymentMethod   string           `json:"payment_method,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	SubmittedAt     *time.Time       `json:"submitted_at,omitempty"`
	ReceivedAt      *time.Time       `json:"received_at,omitempty"`
	DecidedAt       *time.Time       `json:"decided_at,omitempty"`
}

// OrderLinePayload is one priced line of an order.
type OrderLinePayload struct {
	ListingID string       `json:"listing_id"`
	ISBN      string       `json:"isbn"`
	UnitPrice domain.Money `json:"unit_price"`
	Quantity  int          `json:"quantity"`
}

// OrderLineRequest asks for quantity copies of a catalog ISBN. Pricing is
// resolved server side.
type OrderLineRequest struct {
	ISBN     string `json:"isbn" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// OrderCreateRequest places an order.
type OrderCreateRequest struct {
	Lines []OrderLineRequest `json:"lines" binding:"required,dive"`
}

// OrderPayload is the API view of an order.
type OrderPayload struct {
	ID            string             `json:"id"`
	CustomerID    string             `json:"customer_id"`
	Status        string             `json:"status"`
	Lines         []OrderLinePayload `json:"lines"`
	Total         domain.Money       `json:"total"`
	HoldExpiresAt time.Time          `json:"hold_expires_at"`
	CancelReason  string             `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	PaidAt        *time.Time         `json:"paid_at,omitempty"`
	ClosedAt      *time.Time         `json:"closed_at,omitempty"`
}

func newRolePayload(role *domain.Role) RolePayload {
	kinds := role.AppliesTo()
	appliesTo := make([]string, 0, len(kinds))
	for _, k := range kinds {
		appliesTo = append(appliesTo, string(k))
	}
	return RolePayload{
		ID:          role.ID(),
		Name:        role.Name(),
		Description: role.Description(),
		Permissions: permissionStrings(role.Permissions()),
		AppliesTo:   appliesTo,
		IsSystem:    role.IsSystem(),
		CreatedAt:   role.CreatedAt(),
		UpdatedAt:   role.UpdatedAt(),
	}
}

func permissionStrings(perms []domain.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	return out
}

func newAssignmentPayload(a domain.RoleAssignment) RoleAssignmentPayload {
	return RoleAssignmentPayload{
		UserID:     a.UserID,
		RoleID:     a.RoleID,
		AssignedBy: a.AssignedBy,
		AssignedAt: a.AssignedAt,
		ExpiresAt:  a.ExpiresAt,
		Scope:      a.Scope,
	}
}

func newAppraisalPayload(a *domain.Appraisal) AppraisalPayload {
	books := a.Books()
	payload := AppraisalPayload{
		ID:                a.ID(),
		PurchaseRequestID: a.PurchaseRequestID(),
		Status:            string(a.Status()),
		Books:             make([]AppraisedBookPayload, 0, len(books)),
		TotalOffer:        a.TotalOffer(),
		CreatedAt:         a.CreatedAt(),
		UpdatedAt:         a.UpdatedAt(),
		CompletedAt:       a.CompletedAt(),
	}
	for _, b := range books {
		payload.Books = append(payload.Books, AppraisedBookPayload{
			ISBN:        b.ISBN,
			Title:       b.Title,
			Condition:   string(b.Condition),
			BasePrice:   b.BasePrice,
			OfferPrice:  b.OfferPrice,
			AppraisedAt: b.AppraisedAt,
		})
	}
	return payload
}

func newAddressPayload(a domain.Address) AddressPayload {
	return AddressPayload(a)
}

func (p AddressPayload) toDomain() domain.Address {
	return domain.Address(p)
}

func newShipmentPayload(s *domain.Shipment) ShipmentPayload {
	return ShipmentPayload{
		ID:             s.ID(),
		OrderID:        s.OrderID(),
		Status:         string(s.Status()),
		Address:        newAddressPayload(s.Address()),
		Carrier:        string(s.Carrier()),
		TrackingNumber: s.TrackingNumber(),
		TrackingURL:    s.TrackingURL(),
		CreatedAt:      s.CreatedAt(),
		UpdatedAt:      s.UpdatedAt(),
		DispatchedAt:   s.DispatchedAt(),
		DeliveredAt:    s.DeliveredAt(),
	}
}

func newEstimatePayload(e domain.Estimate) EstimatePayload {
	return EstimatePayload{
		Amount:       e.Amount,
		BookCount:    e.BookCount,
		CalculatedAt: e.CalculatedAt,
		ExpiresAt:    e.ExpiresAt,
	}
}

func newPurchaseRequestPayload(r *domain.PurchaseRequest) PurchaseRequestPayload {
	payload := PurchaseRequestPayload{
		ID:              r.ID(),
		CustomerID:      r.CustomerID(),
		ISBNs:           r.ISBNs(),
		Status:          string(r.Status()),
		TrackingNumber:  r.TrackingNumber(),
		LabelURL:        r.LabelURL(),
		PaymentMethod:   string(r.PaymentMethod()),
		RejectionReason: r.RejectionReason(),
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
		SubmittedAt:     r.SubmittedAt(),
		ReceivedAt:      r.ReceivedAt(),
		DecidedAt:       r.DecidedAt(),
	}
	if est := r.Estimate(); est != nil {
		e := newEstimatePayload(*est)
		payload.Estimate = &e
	}
	if r.Status() == domain.PurchaseRequestAccepted {
		amount := r.AcceptedAmount()
		payload.AcceptedAmount = &amount
	}
	return payload
}

func newOrderPayload(o *domain.Order) OrderPayload {
	lines := o.Lines()
	payload := OrderPayload{
		ID:            o.ID(),
		CustomerID:    o.CustomerID(),
		Status:        string(o.Status()),
		Lines:         make([]OrderLinePayload, 0, len(lines)),
		Total:         o.Total(),
		HoldExpiresAt: o.HoldExpiresAt(),
		CancelReason:  o.CancelReason(),
		CreatedAt:     o.CreatedAt(),
		UpdatedAt:     o.UpdatedAt(),
		PaidAt:        o.PaidAt(),
		ClosedAt:      o.ClosedAt(),
	}
	for _, l := range lines {
		payload.Lines = append(payload.Lines, OrderLinePayload{
			ListingID: l.ListingID,
			ISBN:      l.ISBN,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return payload
}
