package services

import (
	"context"
	"sync"
	"time"

	"fulfillment-service/models"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository doubles shared by the service tests. Error hooks let
// individual tests force failures on specific paths.

func invKey(productID, clientID uuid.UUID) string {
	return productID.String() + "|" + clientID.String()
}

type memInventoryRepo struct {
	mu          sync.Mutex
	recs        map[string]*models.InventoryRecord
	reserveErr  map[uuid.UUID]error
	dispatchErr map[uuid.UUID]error
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{
		recs:        make(map[string]*models.InventoryRecord),
		reserveErr:  make(map[uuid.UUID]error),
		dispatchErr: make(map[uuid.UUID]error),
	}
}

func (m *memInventoryRepo) seed(productID, clientID uuid.UUID, total, available, reserved, dispatched int) {
	m.recs[invKey(productID, clientID)] = &models.InventoryRecord{
		ID:              uuid.New(),
		ProductID:       productID,
		ClientID:        clientID,
		TotalStock:      total,
		AvailableStock:  available,
		ReservedStock:   reserved,
		DispatchedStock: dispatched,
	}
}

func (m *memInventoryRepo) get(productID, clientID uuid.UUID) *models.InventoryRecord {
	return m.recs[invKey(productID, clientID)]
}

func (m *memInventoryRepo) FindByProductAndClient(ctx context.Context, productID, clientID uuid.UUID) (*models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[invKey(productID, clientID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memInventoryRepo) Reserve(ctx context.Context, productID, clientID uuid.UUID, qty int) (*models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.reserveErr[productID]; ok {
		return nil, err
	}
	rec, ok := m.recs[invKey(productID, clientID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if rec.AvailableStock < qty {
		return nil, repository.ErrInsufficientStock
	}
	rec.AvailableStock -= qty
	rec.ReservedStock += qty
	cp := *rec
	return &cp, nil
}

func (m *memInventoryRepo) Release(ctx context.Context, productID, clientID uuid.UUID, qty int) (*models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[invKey(productID, clientID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	moved := qty
	if rec.ReservedStock < moved {
		moved = rec.ReservedStock
	}
	rec.ReservedStock -= moved
	rec.AvailableStock += moved
	cp := *rec
	return &cp, nil
}

func (m *memInventoryRepo) Dispatch(ctx context.Context, productID, clientID uuid.UUID, qty int) (*models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.dispatchErr[productID]; ok {
		return nil, err
	}
	rec, ok := m.recs[invKey(productID, clientID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if rec.ReservedStock < qty {
		return nil, repository.ErrInsufficientReserved
	}
	rec.ReservedStock -= qty
	rec.DispatchedStock += qty
	cp := *rec
	return &cp, nil
}

func (m *memInventoryRepo) Adjust(ctx context.Context, productID, clientID uuid.UUID, delta int) (*models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[invKey(productID, clientID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if rec.AvailableStock+delta < 0 || rec.TotalStock+delta < 0 {
		return nil, repository.ErrNegativeStock
	}
	rec.AvailableStock += delta
	rec.TotalStock += delta
	cp := *rec
	if !cp.Balanced() {
		return &cp, repository.ErrLedgerUnbalanced
	}
	return &cp, nil
}

type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	createErr error
	updateErr error
	linkErr   error
	findErr   map[uuid.UUID]error // per-client listing failures
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders:  make(map[uuid.UUID]*models.Order),
		findErr: make(map[uuid.UUID]error),
	}
}

func (m *memOrderRepo) seed(order *models.Order) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	m.orders[order.ID] = order
}

func (m *memOrderRepo) Create(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.OrderItems {
		if order.OrderItems[i].ID == uuid.Nil {
			order.OrderItems[i].ID = uuid.New()
		}
		order.OrderItems[i].OrderID = order.ID
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (m *memOrderRepo) FindByClientID(ctx context.Context, clientID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.ClientID == clientID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memOrderRepo) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (m *memOrderRepo) Update(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memOrderRepo) HardDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

func (m *memOrderRepo) LinkInvoice(ctx context.Context, orderIDs []uuid.UUID, invoiceID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.linkErr != nil {
		return m.linkErr
	}
	for _, id := range orderIDs {
		if o, ok := m.orders[id]; ok {
			inv := invoiceID
			o.InvoiceID = &inv
		}
	}
	return nil
}

func (m *memOrderRepo) FindDispatchedInPeriod(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.findErr[clientID]; ok {
		return nil, err
	}
	var out []models.Order
	for _, o := range m.orders {
		if o.ClientID != clientID || o.DispatchedAt == nil {
			continue
		}
		if o.Status != models.OrderStatusDispatched && o.Status != "delivered" {
			continue
		}
		if o.DispatchedAt.Before(from) || !o.DispatchedAt.Before(to) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

type memProductRepo struct {
	products map[uuid.UUID]models.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[uuid.UUID]models.Product)}
}

func (m *memProductRepo) seed(p models.Product) {
	m.products[p.ID] = p
}

func (m *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (m *memProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memClientRepo struct {
	clients []models.Client
}

func (m *memClientRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	for _, c := range m.clients {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memClientRepo) FindActive(ctx context.Context) ([]models.Client, error) {
	var out []models.Client
	for _, c := range m.clients {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

type memInvoiceRepo struct {
	mu        sync.Mutex
	invoices  map[uuid.UUID]*models.Invoice
	updateErr error
	createErr error
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[uuid.UUID]*models.Invoice)}
}

func (m *memInvoiceRepo) seed(inv *models.Invoice) {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	m.invoices[inv.ID] = inv
}

func (m *memInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	for i := range invoice.LineItems {
		if invoice.LineItems[i].ID == uuid.Nil {
			invoice.LineItems[i].ID = uuid.New()
		}
		invoice.LineItems[i].InvoiceID = invoice.ID
	}
	m.invoices[invoice.ID] = invoice
	return nil
}

func (m *memInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoiceRepo) FindByClientAndPeriod(ctx context.Context, clientID uuid.UUID, month, year int) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ClientID == clientID && inv.BillingMonth != nil && *inv.BillingMonth == month &&
			inv.BillingYear != nil && *inv.BillingYear == year {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memInvoiceRepo) UpdateDerivedFields(ctx context.Context, id uuid.UUID, expectedPaid, paidAmount, balanceDue int64, status string, paidDate *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	inv, ok := m.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if inv.PaidAmount != expectedPaid {
		return repository.ErrInvoiceStale
	}
	inv.PaidAmount = paidAmount
	inv.BalanceDue = balanceDue
	inv.Status = status
	inv.PaidDate = paidDate
	return nil
}

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*models.InvoicePayment
	deleted  []uuid.UUID
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[uuid.UUID]*models.InvoicePayment)}
}

func (m *memPaymentRepo) seed(p *models.InvoicePayment) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.payments[p.ID] = p
}

func (m *memPaymentRepo) Create(ctx context.Context, payment *models.InvoicePayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	m.payments[payment.ID] = payment
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.InvoicePayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoicePayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InvoicePayment
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type capturedEvent struct {
	Key     string
	Payload interface{}
}

type memPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
	err    error
}

func (m *memPublisher) Publish(ctx context.Context, key string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, capturedEvent{Key: key, Payload: payload})
	return nil
}

type memLocker struct {
	denied   bool
	acquired []string
	released []string
}

func (m *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.denied {
		return false, nil
	}
	m.acquired = append(m.acquired, key)
	return true, nil
}

func (m *memLocker) Release(ctx context.Context, key string) error {
	m.released = append(m.released, key)
	return nil
}
