package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/arklim/book-buyback/internal/core/domain"
)

// In-memory repositories store snapshots so tests observe only saved state.

type roleRepoMock struct {
	mu      sync.Mutex
	roles   map[string]domain.RoleSnapshot
	saveErr error
	findErr error
	saves   int
}

func newRoleRepoMock(roles ...*domain.Role) *roleRepoMock {
	m := &roleRepoMock{roles: make(map[string]domain.RoleSnapshot)}
	for _, r := range roles {
		m.roles[r.ID()] = r.Snapshot()
	}
	return m
}

func (m *roleRepoMock) Save(_ context.Context, role *domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.roles[role.ID()] = role.Snapshot()
	m.saves++
	return nil
}

func (m *roleRepoMock) FindByID(_ context.Context, id string) (*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if s, ok := m.roles[id]; ok {
		return domain.RestoreRole(s), nil
	}
	return nil, nil
}

func (m *roleRepoMock) FindByName(_ context.Context, name string) (*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.roles {
		if s.Name == name {
			return domain.RestoreRole(s), nil
		}
	}
	return nil, nil
}

func (m *roleRepoMock) FindByIDs(_ context.Context, ids []string) ([]*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	roles := make([]*domain.Role, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.roles[id]; ok {
			roles = append(roles, domain.RestoreRole(s))
		}
	}
	return roles, nil
}

func (m *roleRepoMock) List(_ context.Context) ([]*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := make([]*domain.Role, 0, len(m.roles))
	for _, s := range m.roles {
		roles = append(roles, domain.RestoreRole(s))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name() < roles[j].Name() })
	return roles, nil
}

func (m *roleRepoMock) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles, id)
	return nil
}

func (m *roleRepoMock) stored(id string) *domain.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.roles[id]
	if !ok {
		return nil
	}
	return domain.RestoreRole(s)
}

type assignmentRepoMock struct {
	mu          sync.Mutex
	assignments map[string]map[string]domain.RoleAssignment
	findErr     error
	now         func() time.Time
}

func newAssignmentRepoMock() *assignmentRepoMock {
	return &assignmentRepoMock{
		assignments: make(map[string]map[string]domain.RoleAssignment),
		now:         time.Now,
	}
}

func (m *assignmentRepoMock) FindRoleIDsForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	ids := make([]string, 0)
	for roleID, a := range m.assignments[userID] {
		if a.Active(m.now()) {
			ids = append(ids, roleID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *assignmentRepoMock) Assign(_ context.Context, a domain.RoleAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignments[a.UserID] == nil {
		m.assignments[a.UserID] = make(map[string]domain.RoleAssignment)
	}
	m.assignments[a.UserID][a.RoleID] = a
	return nil
}

func (m *assignmentRepoMock) Remove(_ context.Context, userID, roleID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[userID][roleID]; !ok {
		return false, nil
	}
	delete(m.assignments[userID], roleID)
	return true, nil
}

func (m *assignmentRepoMock) CountByRole(_ context.Context, roleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, roles := range m.assignments {
		if _, ok := roles[roleID]; ok {
			count++
		}
	}
	return count, nil
}

type appraisalRepoMock struct {
	mu      sync.Mutex
	items   map[string]domain.AppraisalSnapshot
	saveErr error
}

func newAppraisalRepoMock() *appraisalRepoMock {
	return &appraisalRepoMock{items: make(map[string]domain.AppraisalSnapshot)}
}

func (m *appraisalRepoMock) Save(_ context.Context, a *domain.Appraisal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[a.ID()] = a.Snapshot()
	return nil
}

func (m *appraisalRepoMock) FindByID(_ context.Context, id string) (*domain.Appraisal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.items[id]; ok {
		return domain.RestoreAppraisal(s), nil
	}
	return nil, nil
}

func (m *appraisalRepoMock) FindByPurchaseRequestID(_ context.Context, id string) (*domain.Appraisal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.items {
		if s.PurchaseRequestID == id {
			return domain.RestoreAppraisal(s), nil
		}
	}
	return nil, nil
}

func (m *appraisalRepoMock) FindByStatus(_ context.Context, status domain.AppraisalStatus) ([]*domain.Appraisal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Appraisal, 0)
	for _, s := range m.items {
		if s.Status == status {
			out = append(out, domain.RestoreAppraisal(s))
		}
	}
	return out, nil
}

type shipmentRepoMock struct {
	mu    sync.Mutex
	items map[string]domain.ShipmentSnapshot
}

func newShipmentRepoMock() *shipmentRepoMock {
	return &shipmentRepoMock{items: make(map[string]domain.ShipmentSnapshot)}
}

func (m *shipmentRepoMock) Save(_ context.Context, s *domain.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID()] = s.Snapshot()
	return nil
}

func (m *shipmentRepoMock) FindByID(_ context.Context, id string) (*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.items[id]; ok {
		return domain.RestoreShipment(s), nil
	}
	return nil, nil
}

func (m *shipmentRepoMock) FindByOrderID(_ context.Context, orderID string) (*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.items {
		if s.OrderID == orderID {
			return domain.RestoreShipment(s), nil
		}
	}
	return nil, nil
}

func (m *shipmentRepoMock) FindByStatus(_ context.Context, status domain.ShipmentStatus) ([]*domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Shipment, 0)
	for _, s := range m.items {
		if s.Status == status {
			out = append(out, domain.RestoreShipment(s))
		}
	}
	return out, nil
}

type purchaseRequestRepoMock struct {
	mu    sync.Mutex
	items map[string]domain.PurchaseRequestSnapshot
}

func newPurchaseRequestRepoMock() *purchaseRequestRepoMock {
	return &purchaseRequestRepoMock{items: make(map[string]domain.PurchaseRequestSnapshot)}
}

func (m *purchaseRequestRepoMock) Save(_ context.Context, r *domain.PurchaseRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[r.ID()] = r.Snapshot()
	return nil
}

func (m *purchaseRequestRepoMock) FindByID(_ context.Context, id string) (*domain.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.items[id]; ok {
		return domain.RestorePurchaseRequest(s), nil
	}
	return nil, nil
}

func (m *purchaseRequestRepoMock) FindByStatus(_ context.Context, status domain.PurchaseRequestStatus) ([]*domain.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.PurchaseRequest, 0)
	for _, s := range m.items {
		if s.Status == status {
			out = append(out, domain.RestorePurchaseRequest(s))
		}
	}
	return out, nil
}

type orderRepoMock struct {
	mu    sync.Mutex
	items map[string]domain.OrderSnapshot
}

func newOrderRepoMock() *orderRepoMock {
	return &orderRepoMock{items: make(map[string]domain.OrderSnapshot)}
}

func (m *orderRepoMock) Save(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[o.ID()] = o.Snapshot()
	return nil
}

func (m *orderRepoMock) FindByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.items[id]; ok {
		return domain.RestoreOrder(s), nil
	}
	return nil, nil
}

func (m *orderRepoMock) FindByStatus(_ context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Order, 0)
	for _, s := range m.items {
		if s.Status == status {
			out = append(out, domain.RestoreOrder(s))
		}
	}
	return out, nil
}

func (m *orderRepoMock) FindExpiredHolds(_ context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Order, 0)
	for _, s := range m.items {
		if s.Status == domain.OrderPending && !before.Before(s.HoldExpiresAt) && len(out) < limit {
			out = append(out, domain.RestoreOrder(s))
		}
	}
	return out, nil
}

func (m *orderRepoMock) put(o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[o.ID()] = o.Snapshot()
}

type catalogStub map[string]domain.BookListing

func (c catalogStub) LookupISBN(_ context.Context, isbn string) (*domain.BookListing, error) {
	if l, ok := c[isbn]; ok {
		return &l, nil
	}
	return nil, nil
}

type labelProviderStub struct {
	calls int
	err   error
}

func (l *labelProviderStub) CreateInboundLabel(_ context.Context, requestID, _ string) (domain.ShippingLabel, error) {
	l.calls++
	if l.err != nil {
		return domain.ShippingLabel{}, l.err
	}
	return domain.ShippingLabel{
		TrackingNumber: "TRK-" + requestID,
		LabelURL:       "https://labels.example/" + requestID,
	}, nil
}

type trackingURLStub struct{}

func (trackingURLStub) TrackingURL(carrier domain.Carrier, trackingNumber string) (string, error) {
	return "https://track.example/" + string(carrier) + "/" + trackingNumber, nil
}

type publisherMock struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *publisherMock) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *publisherMock) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func (p *publisherMock) last() domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

var errRepoDown = errors.New("repository unavailable")
