package usecase

import "github.com/arklim/book-buyback/internal/core/domain"

// Permissions checked at the transport boundary.
var (
	PermRolesRead   = domain.MustPermission("roles:read")
	PermRolesManage = domain.MustPermission("roles:manage")
	PermRolesAssign = domain.MustPermission("roles:assign")

	PermAppraisalsRead     = domain.MustPermission("appraisals:read")
	PermAppraisalsCreate   = domain.MustPermission("appraisals:create")
	PermAppraisalsUpdate   = domain.MustPermission("appraisals:update")
	PermAppraisalsComplete = domain.MustPermission("appraisals:complete")

	PermShipmentsRead   = domain.MustPermission("shipments:read")
	PermShipmentsCreate = domain.MustPermission("shipments:create")
	PermShipmentsUpdate = domain.MustPermission("shipments:update")

	PermPurchaseRequestsRead    = domain.MustPermission("purchase_requests:read")
	PermPurchaseRequestsCreate  = domain.MustPermission("purchase_requests:create")
	PermPurchaseRequestsSubmit  = domain.MustPermission("purchase_requests:submit")
	PermPurchaseRequestsReceive = domain.MustPermission("purchase_requests:receive")
	PermPurchaseRequestsDecide  = domain.MustPermission("purchase_requests:decide")

	PermOrdersRead    = domain.MustPermission("orders:read")
	PermOrdersCreate  = domain.MustPermission("orders:create")
	PermOrdersPay     = domain.MustPermission("orders:pay")
	PermOrdersCancel  = domain.MustPermission("orders:cancel")
	PermOrdersFulfill = domain.MustPermission("orders:fulfill")
	PermOrdersRefund  = domain.MustPermission("orders:refund")

	PermEstimatesCreate = domain.MustPermission("estimates:create")
)

// SystemRoleDefinition describes a built-in role seeded at startup.
type SystemRoleDefinition struct {
	Name        string
	Description string
	Permissions []domain.Permission
	AppliesTo   []domain.PrincipalKind
}

// DefaultSystemRoles are the built-in roles every deployment starts with.
func DefaultSystemRoles() []SystemRoleDefinition {
	return []SystemRoleDefinition{
		{
			Name:        "admin",
			Description: "Full access to every resource",
			Permissions: []domain.Permission{domain.MustPermission("*:*")},
			AppliesTo:   []domain.PrincipalKind{domain.PrincipalAdmin},
		},
		{
			Name:        "appraiser",
			Description: "Grades received books and decides payouts",
			Permissions: []domain.Permission{
				domain.MustPermission("appraisals:*"),
				PermPurchaseRequestsRead,
				PermPurchaseRequestsReceive,
				PermPurchaseRequestsDecide,
			},
			AppliesTo: []domain.PrincipalKind{domain.PrincipalStaff},
		},
		{
			Name:        "warehouse",
			Description: "Checks in parcels and ships orders",
			Permissions: []domain.Permission{
				domain.MustPermission("shipments:*"),
				PermOrdersRead,
				PermOrdersFulfill,
				PermPurchaseRequestsRead,
				PermPurchaseRequestsReceive,
			},
			AppliesTo: []domain.PrincipalKind{domain.PrincipalStaff},
		},
		{
			Name:        "support",
			Description: "Read access for customer support",
			Permissions: []domain.Permission{
				domain.MustPermission("*:read"),
			},
			AppliesTo: []domain.PrincipalKind{domain.PrincipalStaff},
		},
		{
			Name:        "customer",
			Description: "Sells and buys books",
			Permissions: []domain.Permission{
				PermEstimatesCreate,
				PermPurchaseRequestsRead,
				PermPurchaseRequestsCreate,
				PermPurchaseRequestsSubmit,
				PermOrdersRead,
				PermOrdersCreate,
				PermOrdersPay,
				PermOrdersCancel,
				PermShipmentsRead,
			},
			AppliesTo: []domain.PrincipalKind{domain.PrincipalCustomer},
		},
	}
}
