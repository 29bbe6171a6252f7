package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fulfillment-service/controllers"
	"fulfillment-service/models"
	"fulfillment-service/repository"
	"fulfillment-service/routes"
	"fulfillment-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testInternalToken = "internal-test-token"

// Stubs embed the repository interface so only the methods a test exercises
// need an implementation; anything else panics loudly.

type stubOrderRepo struct {
	repository.OrderRepository
	order *models.Order
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order != nil && s.order.ID == id {
		return s.order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) Update(ctx context.Context, order *models.Order) error {
	s.order = order
	return nil
}

type stubInvoiceRepo struct {
	repository.InvoiceRepository
	invoice *models.Invoice
}

func (s *stubInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	if s.invoice != nil && s.invoice.ID == id {
		cp := *s.invoice
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubClientRepo struct {
	repository.ClientRepository
}

func (s *stubClientRepo) FindActive(ctx context.Context) ([]models.Client, error) {
	return nil, nil
}

type stubInventoryRepo struct {
	repository.InventoryRepository
}

type stubProductRepo struct {
	repository.ProductRepository
}

type stubPaymentRepo struct {
	repository.PaymentRepository
}

type testFixture struct {
	router   *gin.Engine
	orders   *stubOrderRepo
	invoices *stubInvoiceRepo
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &testFixture{
		orders:   &stubOrderRepo{},
		invoices: &stubInvoiceRepo{},
	}

	log := zap.NewNop()
	orderService := services.NewOrderService(f.orders, &stubInventoryRepo{}, &stubProductRepo{},
		f.invoices, nil, nil, "", log)
	paymentService := services.NewPaymentService(f.invoices, &stubPaymentRepo{}, nil, log)
	inventoryService := services.NewInventoryService(&stubInventoryRepo{}, log)
	monthlyService := services.NewMonthlyInvoiceService(&stubClientRepo{}, f.orders, f.invoices,
		nil, nil, services.MonthlyBillingConfig{}, log)

	f.router = gin.New()
	routes.Register(f.router,
		controllers.NewOrderController(orderService),
		controllers.NewPaymentController(paymentService),
		controllers.NewInvoiceController(monthlyService),
		controllers.NewInventoryController(inventoryService),
		testInternalToken,
	)
	return f
}

func (f *testFixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func authHeaders() map[string]string {
	return map[string]string{"X-User-ID": uuid.NewString()}
}

func TestUpdateStatus_RequiresAuth(t *testing.T) {
	f := newTestFixture(t)

	w := f.do(t, http.MethodPut, "/orders/"+uuid.NewString()+"/status",
		gin.H{"status": "approved"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateStatus_InvalidTransitionHTTP(t *testing.T) {
	f := newTestFixture(t)
	f.orders.order = &models.Order{
		ID:     uuid.New(),
		Status: models.OrderStatusDispatched,
	}

	w := f.do(t, http.MethodPut, "/orders/"+f.orders.order.ID.String()+"/status",
		gin.H{"status": "pending"}, authHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", body["code"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "dispatched", details["currentStatus"])
	assert.Equal(t, "pending", details["attemptedStatus"])
	assert.Contains(t, details, "allowedTransitions")
}

func TestUpdateStatus_LockedByInvoiceHTTP(t *testing.T) {
	f := newTestFixture(t)
	f.invoices.invoice = &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-202607-LOCK0001",
		Status:        models.InvoiceStatusSent,
	}
	f.orders.order = &models.Order{
		ID:        uuid.New(),
		Status:    models.OrderStatusApproved,
		InvoiceID: &f.invoices.invoice.ID,
	}

	w := f.do(t, http.MethodPut, "/orders/"+f.orders.order.ID.String()+"/status",
		gin.H{"status": "cancelled"}, authHeaders())
	assert.Equal(t, http.StatusForbidden, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ORDER_LOCKED_BY_INVOICE", body["code"])
	details := body["details"].(map[string]interface{})
	assert.Equal(t, "INV-202607-LOCK0001", details["invoiceNumber"])
}

func TestUpdateStatus_OrderNotFoundHTTP(t *testing.T) {
	f := newTestFixture(t)

	w := f.do(t, http.MethodPut, "/orders/"+uuid.NewString()+"/status",
		gin.H{"status": "approved"}, authHeaders())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordPayment_OverpaymentHTTP(t *testing.T) {
	f := newTestFixture(t)
	f.invoices.invoice = &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-202607-PAY00001",
		TotalAmount:   10000,
		PaidAmount:    8000,
		BalanceDue:    2000,
		Status:        models.InvoiceStatusPartial,
	}

	w := f.do(t, http.MethodPost, "/invoices/"+f.invoices.invoice.ID.String()+"/payments",
		gin.H{"amount": 3000}, authHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, "PAYMENT_EXCEEDS_TOTAL", body["code"])
	details := body["details"].(map[string]interface{})
	assert.Equal(t, float64(10000), details["totalAmount"])
	assert.Equal(t, float64(8000), details["alreadyPaid"])
	assert.Equal(t, float64(2000), details["maxPayment"])
}

func TestGetInvoice_SummaryHTTP(t *testing.T) {
	f := newTestFixture(t)
	f.invoices.invoice = &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-202607-SUM00001",
		TotalAmount:   10000,
		PaidAmount:    4000,
		BalanceDue:    6000,
		Status:        models.InvoiceStatusPartial,
	}

	w := f.do(t, http.MethodGet, "/invoices/"+f.invoices.invoice.ID.String(), nil, authHeaders())
	assert.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(6000), summary["balance_due"])
	assert.Equal(t, "partial", summary["status"])
}

func TestGenerateMonthly_InternalTokenRequired(t *testing.T) {
	f := newTestFixture(t)

	w := f.do(t, http.MethodPost, "/invoices/generate-monthly-auto", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/invoices/generate-monthly-auto", nil,
		map[string]string{"X-Internal-Token": "wrong-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/invoices/generate-monthly-auto", nil,
		map[string]string{"X-Internal-Token": testInternalToken})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Contains(t, body, "month")
	assert.Contains(t, body, "year")
	assert.Equal(t, float64(0), body["successful"])
}
