package routes

import (
	"fulfillment-service/controllers"
	"fulfillment-service/middleware"

	"github.com/gin-gonic/gin"
)

// Register wires every endpoint. Order and invoice routes carry gateway auth
// plus rate limiting on writes; the monthly-billing trigger is internal-only
// behind the shared secret.
func Register(
	r *gin.Engine,
	oc *controllers.OrderController,
	pc *controllers.PaymentController,
	ic *controllers.InvoiceController,
	invc *controllers.InventoryController,
	internalToken string,
) {
	orders := r.Group("/orders")
	orders.Use(middleware.AuthMiddleware())
	orders.GET("", oc.GetOrders)
	orders.GET("/:id", oc.GetOrderByID)
	orders.POST("", middleware.RateLimitMiddleware(), oc.CreateOrder)
	orders.PUT("/:id/status", middleware.RateLimitMiddleware(), oc.UpdateStatus)

	invoices := r.Group("/invoices")
	invoices.Use(middleware.AuthMiddleware())
	invoices.GET("/:id", pc.GetInvoiceByID)
	invoices.POST("/:id/payments", middleware.RateLimitMiddleware(), pc.RecordPayment)
	invoices.DELETE("/:id/payments/:payment_id", middleware.RateLimitMiddleware(), pc.DeletePayment)

	inventory := r.Group("/inventory")
	inventory.Use(middleware.AuthMiddleware())
	inventory.GET("", invc.GetRecord)
	inventory.POST("/adjust", middleware.RateLimitMiddleware(), invc.Adjust)

	internal := r.Group("/invoices")
	internal.Use(middleware.InternalAuthMiddleware(internalToken))
	internal.POST("/generate-monthly-auto", ic.GenerateMonthly)
}
