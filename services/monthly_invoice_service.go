package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fulfillment-service/apperrors"
	"fulfillment-service/models"
	"fulfillment-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BatchLocker serializes batch runs across processes. Implemented with a
// Redis SET NX lock; nil disables locking (tests, single-node deployments).
type BatchLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// MonthlyBillingConfig carries the hand-tuned billing constants. The weight
// ceiling and the per-unit formula mirror the rate card agreed with clients.
type MonthlyBillingConfig struct {
	Location        *time.Location
	BaseRateCents   int64
	PerUnitCents    int64
	WeightCeilingKg float64
	DueInDays       int
}

// ExcludedOrder reports an order left off a monthly invoice and why.
type ExcludedOrder struct {
	OrderID       string  `json:"order_id"`
	OrderNumber   string  `json:"order_number"`
	TotalWeightKg float64 `json:"total_weight_kg"`
	Reason        string  `json:"reason"`
}

// ClientBillingResult is the per-client outcome of a batch run.
type ClientBillingResult struct {
	ClientID       string          `json:"client_id"`
	CompanyName    string          `json:"company_name"`
	Status         string          `json:"status"` // success, skipped or error
	InvoiceID      string          `json:"invoice_id,omitempty"`
	InvoiceNumber  string          `json:"invoice_number,omitempty"`
	TotalAmount    int64           `json:"total_amount,omitempty"`
	OrdersBilled   int             `json:"orders_billed,omitempty"`
	ExcludedOrders []ExcludedOrder `json:"excluded_orders,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// GenerateMonthlyResult is the batch summary.
type GenerateMonthlyResult struct {
	BillingMonth int                   `json:"billing_month"`
	BillingYear  int                   `json:"billing_year"`
	Successful   int                   `json:"successful"`
	Skipped      int                   `json:"skipped"`
	Errors       int                   `json:"errors"`
	Results      []ClientBillingResult `json:"results"`
	Duration     string                `json:"duration"`
}

// MonthlyInvoiceService generates one invoice per (client, billing month)
// from the client's dispatched orders. Generation is idempotent: a client
// that already has an invoice for the period is skipped, and a unique index
// on (client_id, billing_month, billing_year) backstops the check.
type MonthlyInvoiceService struct {
	clientRepo  repository.ClientRepository
	orderRepo   repository.OrderRepository
	invoiceRepo repository.InvoiceRepository
	locker      BatchLocker
	events      EventPublisher
	cfg         MonthlyBillingConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewMonthlyInvoiceService creates a new MonthlyInvoiceService.
func NewMonthlyInvoiceService(
	clientRepo repository.ClientRepository,
	orderRepo repository.OrderRepository,
	invoiceRepo repository.InvoiceRepository,
	locker BatchLocker,
	events EventPublisher,
	cfg MonthlyBillingConfig,
	logger *zap.Logger,
) *MonthlyInvoiceService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &MonthlyInvoiceService{
		clientRepo:  clientRepo,
		orderRepo:   orderRepo,
		invoiceRepo: invoiceRepo,
		locker:      locker,
		events:      events,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// GenerateMonthly bills every active client for the previous calendar month.
// Clients are processed sequentially; a per-client failure is recorded in the
// summary and never aborts the rest of the batch.
func (s *MonthlyInvoiceService) GenerateMonthly(ctx context.Context) (*GenerateMonthlyResult, *apperrors.Error) {
	started := s.now()

	// The billing period is computed in a fixed reference timezone so the
	// batch is insensitive to the server clock's zone and DST shifts.
	firstOfCurrent := time.Date(started.In(s.cfg.Location).Year(), started.In(s.cfg.Location).Month(), 1,
		0, 0, 0, 0, s.cfg.Location)
	periodStart := firstOfCurrent.AddDate(0, -1, 0)
	periodEnd := firstOfCurrent
	month := int(periodStart.Month())
	year := periodStart.Year()

	if s.locker != nil {
		key := fmt.Sprintf("billing:monthly:%04d-%02d", year, month)
		ok, err := s.locker.Acquire(ctx, key, 30*time.Minute)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if !ok {
			return nil, apperrors.New(http.StatusConflict, apperrors.CodeGenerationInProgress,
				"Monthly generation is already running for this period")
		}
		defer func() {
			if err := s.locker.Release(ctx, key); err != nil {
				s.logger.Warn("Batch lock release failed", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	clients, err := s.clientRepo.FindActive(ctx)
	if err != nil {
		return nil, apperrors.FromDB(err)
	}

	result := &GenerateMonthlyResult{
		BillingMonth: month,
		BillingYear:  year,
		Results:      make([]ClientBillingResult, 0, len(clients)),
	}

	for _, client := range clients {
		r := s.billClient(ctx, client, month, year, periodStart, periodEnd)
		switch r.Status {
		case "success":
			result.Successful++
		case "skipped":
			result.Skipped++
		default:
			result.Errors++
		}
		result.Results = append(result.Results, r)
	}

	result.Duration = s.now().Sub(started).Round(time.Millisecond).String()

	s.logger.Info("Monthly invoice generation finished",
		zap.Int("month", month),
		zap.Int("year", year),
		zap.Int("successful", result.Successful),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
		zap.String("duration", result.Duration),
	)

	return result, nil
}

func (s *MonthlyInvoiceService) billClient(ctx context.Context, client models.Client, month, year int, periodStart, periodEnd time.Time) ClientBillingResult {
	res := ClientBillingResult{
		ClientID:    client.ID.String(),
		CompanyName: client.CompanyName,
	}

	if _, err := s.invoiceRepo.FindByClientAndPeriod(ctx, client.ID, month, year); err == nil {
		res.Status = "skipped"
		res.Reason = "invoice already exists for this period"
		return res
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		res.Status = "error"
		res.Error = err.Error()
		return res
	}

	orders, err := s.orderRepo.FindDispatchedInPeriod(ctx, client.ID, periodStart, periodEnd)
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
		return res
	}
	if len(orders) == 0 {
		res.Status = "skipped"
		res.Reason = "no dispatched orders in period"
		return res
	}

	var total int64
	lineItems := make([]models.InvoiceLineItem, 0, len(orders))
	billedOrderIDs := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		if order.TotalWeightKg > s.cfg.WeightCeilingKg {
			res.ExcludedOrders = append(res.ExcludedOrders, ExcludedOrder{
				OrderID:       order.ID.String(),
				OrderNumber:   order.OrderNumber,
				TotalWeightKg: order.TotalWeightKg,
				Reason:        "total weight above monthly billing ceiling",
			})
			continue
		}

		units := 0
		for _, item := range order.OrderItems {
			units += item.Quantity
		}
		charge := s.cfg.BaseRateCents
		if units > 1 {
			charge += int64(units-1) * s.cfg.PerUnitCents
		}
		total += charge
		billedOrderIDs = append(billedOrderIDs, order.ID)
		lineItems = append(lineItems, models.InvoiceLineItem{
			OrderID:     order.ID,
			Description: fmt.Sprintf("Fulfillment for order %s (%d units)", order.OrderNumber, units),
			Units:       units,
			Amount:      charge,
		})
	}

	if len(lineItems) == 0 {
		res.Status = "skipped"
		res.Reason = "no billable orders in period"
		return res
	}

	dueDate := s.now().AddDate(0, 0, s.cfg.DueInDays)
	billingMonth, billingYear := month, year
	invoice := &models.Invoice{
		InvoiceNumber: newInvoiceNumber(year, month),
		ClientID:      client.ID,
		BillingMonth:  &billingMonth,
		BillingYear:   &billingYear,
		TotalAmount:   total,
		PaidAmount:    0,
		BalanceDue:    ComputeBalanceDue(total, 0),
		Status:        models.InvoiceStatusSent,
		DueDate:       &dueDate,
		LineItems:     lineItems,
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		res.Status = "error"
		res.Error = err.Error()
		return res
	}

	// Stamp the back-reference on every billed order; the invoice is sent,
	// so this is the moment the orders become locked.
	if err := s.orderRepo.LinkInvoice(ctx, billedOrderIDs, invoice.ID); err != nil {
		s.logger.Error("Invoice order link failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("client_id", client.ID.String()),
			zap.Error(err),
		)
		res.Status = "error"
		res.Error = err.Error()
		res.InvoiceID = invoice.ID.String()
		res.InvoiceNumber = invoice.InvoiceNumber
		return res
	}

	s.publishInvoiceGenerated(ctx, invoice, len(lineItems))

	res.Status = "success"
	res.InvoiceID = invoice.ID.String()
	res.InvoiceNumber = invoice.InvoiceNumber
	res.TotalAmount = invoice.TotalAmount
	res.OrdersBilled = len(lineItems)
	return res
}

func (s *MonthlyInvoiceService) publishInvoiceGenerated(ctx context.Context, invoice *models.Invoice, ordersBilled int) {
	if s.events == nil {
		return
	}
	evt := models.InvoiceGeneratedEvent{
		EventType:     "invoice_generated",
		InvoiceID:     invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		ClientID:      invoice.ClientID.String(),
		BillingMonth:  *invoice.BillingMonth,
		BillingYear:   *invoice.BillingYear,
		TotalAmount:   invoice.TotalAmount,
		OrdersBilled:  ordersBilled,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, invoice.ID.String(), evt); err != nil {
		s.logger.Warn("Kafka publish failed", zap.String("invoice_id", evt.InvoiceID), zap.Error(err))
	}
}

func newInvoiceNumber(year, month int) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%04d%02d-%s", year, month, suffix)
}
