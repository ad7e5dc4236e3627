package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/batch"
	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Fulfillment *fulfillment.Service
	Purchases   *inventory.PurchaseUseCase
	Integrity   *inventory.IntegrityUseCase
	Batches     *batch.Coordinator
	Report      batch.ReportGenerator
	JWTSecret   string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	protected := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer)
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleOperator)
	admins := RequireRole(jwt.RoleAdmin)

	// Orders
	orders := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.Fulfillment)
	orders.Get("/:id/cost-preview", anyRole, orderHandler.CostPreview)
	orders.Post("/:id/fulfill", writers, orderHandler.Fulfill)
	orders.Post("/:id/returns", writers, orderHandler.ProcessReturn)
	orders.Delete("/:id", admins, orderHandler.Delete)
	protected.Post("/movements/:id/undo-return", writers, orderHandler.UndoReturn)

	// Purchases
	purchases := protected.Group("/purchases")
	purchaseHandler := NewPurchaseHandler(deps.Purchases)
	purchases.Post("/", writers, purchaseHandler.Record)
	purchases.Post("/import", writers, purchaseHandler.Import)
	purchases.Delete("/:id", admins, purchaseHandler.Delete)

	// Batches
	batches := protected.Group("/batches")
	batchHandler := NewBatchHandler(deps.Batches, deps.Report)
	batches.Post("/", admins, batchHandler.Start)
	batches.Get("/:id", anyRole, batchHandler.Get)
	batches.Delete("/:id", admins, batchHandler.Forget)
	batches.Get("/:id/events", anyRole, batchHandler.Events)
	batches.Get("/:id/report.pdf", anyRole, batchHandler.Report)

	// Inventory
	integrityHandler := NewIntegrityHandler(deps.Integrity)
	protected.Get("/inventory/integrity", anyRole, integrityHandler.Check)
}
