package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Roles            *RoleRepository
	RoleAssignments  *RoleAssignmentRepository
	Appraisals       *AppraisalRepository
	Shipments        *ShipmentRepository
	PurchaseRequests *PurchaseRequestRepository
	Orders           *OrderRepository
	Catalog          *CatalogRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Roles:            NewRoleRepository(pool),
		RoleAssignments:  NewRoleAssignmentRepository(pool),
		Appraisals:       NewAppraisalRepository(pool),
		Shipments:        NewShipmentRepository(pool),
		PurchaseRequests: NewPurchaseRequestRepository(pool),
		Orders:           NewOrderRepository(pool),
		Catalog:          NewCatalogRepository(pool),
	}
}
