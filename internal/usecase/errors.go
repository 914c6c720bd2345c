package usecase

import "errors"

var (
	// ErrPermissionDenied indicates the actor lacks required permissions.
	ErrPermissionDenied = errors.New("insufficient permissions")
	// ErrRoleNotFound is returned when a role id or name does not resolve.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleExists indicates a role with the provided name already exists.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleInUse prevents deleting a role that is still assigned.
	ErrRoleInUse = errors.New("role is still assigned to users")
	// ErrRoleNotApplicable indicates the role does not apply to the principal kind.
	ErrRoleNotApplicable = errors.New("role does not apply to this user type")
	// ErrAssignmentNotFound is returned when removing a role the user does not hold.
	ErrAssignmentNotFound = errors.New("role assignment not found")
	// ErrAppraisalNotFound is returned when an appraisal id does not resolve.
	ErrAppraisalNotFound = errors.New("appraisal not found")
	// ErrAppraisalExists indicates the purchase request already has an appraisal.
	ErrAppraisalExists = errors.New("appraisal already exists for purchase request")
	// ErrShipmentNotFound is returned when a shipment id does not resolve.
	ErrShipmentNotFound = errors.New("shipment not found")
	// ErrShipmentExists indicates the order already has a shipment.
	ErrShipmentExists = errors.New("shipment already exists for order")
	// ErrPurchaseRequestNotFound is returned when a purchase request id does not resolve.
	ErrPurchaseRequestNotFound = errors.New("purchase request not found")
	// ErrOrderNotFound is returned when an order id does not resolve.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotPaid blocks shipping an order that has not been paid.
	ErrOrderNotPaid = errors.New("order is not paid")
	// ErrRequestNotReceived blocks appraising books that have not arrived.
	ErrRequestNotReceived = errors.New("purchase request has not been received")
	// ErrBookNotFound is returned when the catalog does not know an ISBN.
	ErrBookNotFound = errors.New("book not found in catalog")
)
