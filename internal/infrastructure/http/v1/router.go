// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"medstock/internal/core/numerator"
	"medstock/internal/domain/catalogs/customer"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/domain/documents/invoice"
	"medstock/internal/domain/documents/receipt"
	"medstock/internal/domain/reports"
	"medstock/internal/infrastructure/http/v1/handlers"
	"medstock/internal/infrastructure/http/v1/middleware"
	"medstock/internal/infrastructure/storage/postgres"
	"medstock/internal/infrastructure/storage/postgres/catalog_repo"
	"medstock/internal/infrastructure/storage/postgres/document_repo"
	"medstock/internal/infrastructure/storage/postgres/report_repo"
	"medstock/internal/infrastructure/storage/postgres/stock_repo"
	"medstock/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (health checks)
	Pool *postgres.Pool

	// TxManager drives transactions for all repositories
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// Numerator for document number generation
	Numerator numerator.Generator

	// IdempotencyStore enables the idempotency middleware when set
	IdempotencyStore *postgres.IdempotencyStore

	// Audit records document mutations when set
	Audit *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		if cfg.IdempotencyStore != nil {
			v1.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		registerCatalogRoutes(v1, cfg)
		registerDocumentRoutes(v1, cfg)
		registerReportRoutes(v1, cfg)
	}

	return router
}

// registerCatalogRoutes registers catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	catalogs := rg.Group("/catalog")
	baseHandler := handlers.NewBaseHandler()

	// --- PRODUCTS ---
	{
		repo := catalog_repo.NewProductRepo(cfg.TxManager)
		service := product.NewService(repo, cfg.TxManager, cfg.Numerator)
		handler := handlers.NewProductHandler(baseHandler, service)
		handler.RegisterRoutes(catalogs.Group("/products"))
	}

	// --- CUSTOMERS ---
	{
		repo := catalog_repo.NewCustomerRepo(cfg.TxManager)
		service := customer.NewService(repo, cfg.TxManager, cfg.Numerator)
		handler := handlers.NewCustomerHandler(baseHandler, service)
		handler.RegisterRoutes(catalogs.Group("/customers"))
	}
}

// registerDocumentRoutes registers document endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	docsGroup := rg.Group("/document")
	baseHandler := handlers.NewBaseHandler()

	// Shared stock ledger for both engines
	stockRepo := stock_repo.NewStockRepo(cfg.TxManager)

	// --- STOCK RECEIPTS ---
	{
		repo := document_repo.NewReceiptRepo(cfg.TxManager)
		service := receipt.NewService(repo, stockRepo, cfg.Numerator, cfg.TxManager)
		handler := handlers.NewReceiptHandler(baseHandler, service, cfg.Audit)
		handler.RegisterRoutes(docsGroup.Group("/receipts"))
	}

	// --- SALES INVOICES ---
	{
		repo := document_repo.NewInvoiceRepo(cfg.TxManager)
		productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
		customerRepo := catalog_repo.NewCustomerRepo(cfg.TxManager)
		service := invoice.NewService(repo, productRepo, stockRepo, customerRepo, cfg.Numerator, cfg.TxManager)
		handler := handlers.NewInvoiceHandler(baseHandler, service, cfg.Audit)
		handler.RegisterRoutes(docsGroup.Group("/invoices"))
	}
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	reportsGroup := rg.Group("/reports")
	baseHandler := handlers.NewBaseHandler()

	reportRepo := report_repo.NewReportRepo(cfg.TxManager)
	reportService := reports.NewService(reportRepo)
	reportHandler := handlers.NewReportsHandler(baseHandler, reportService)

	reportHandler.RegisterRoutes(reportsGroup)
}
