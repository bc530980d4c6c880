// Package main provides a CLI tool for seeding the database with demo data:
// a few products, a customer, and an opening stock receipt.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"medstock/internal/core/types"
	"medstock/internal/domain/catalogs/customer"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/domain/documents/receipt"
	"medstock/internal/infrastructure/numerator"
	"medstock/internal/infrastructure/storage/postgres"
	"medstock/internal/infrastructure/storage/postgres/catalog_repo"
	"medstock/internal/infrastructure/storage/postgres/document_repo"
	"medstock/internal/infrastructure/storage/postgres/stock_repo"
	"medstock/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	numeratorService := numerator.New(pool.Unwrap())

	productRepo := catalog_repo.NewProductRepo(txManager)
	customerRepo := catalog_repo.NewCustomerRepo(txManager)
	stockRepo := stock_repo.NewStockRepo(txManager)

	productService := product.NewService(productRepo, txManager, numeratorService)
	customerService := customer.NewService(customerRepo, txManager, numeratorService)
	receiptService := receipt.NewService(
		document_repo.NewReceiptRepo(txManager),
		stockRepo,
		numeratorService,
		txManager,
	)

	products, err := seedProducts(ctx, productService, log)
	if err != nil {
		log.Fatalw("failed to seed products", "error", err)
	}

	if err := seedCustomers(ctx, customerService, log); err != nil {
		log.Fatalw("failed to seed customers", "error", err)
	}

	if err := seedOpeningStock(ctx, receiptService, products, log); err != nil {
		log.Fatalw("failed to seed opening stock", "error", err)
	}

	log.Info("seeding complete")
}

func seedProducts(ctx context.Context, svc *product.Service, log *logger.Logger) ([]*product.Product, error) {
	type spec struct {
		name      string
		barcode   string
		largeUnit string
		smallUnit string
		factor    int64
		wholesale types.VND
		minStock  int64
		expiry    time.Duration
	}

	specs := []spec{
		{"Paracetamol 500mg", "8934567000011", "Box", "Tablet", 100, 120000, 200, 540 * 24 * time.Hour},
		{"Amoxicillin 250mg", "8934567000028", "Box", "Capsule", 50, 95000, 100, 365 * 24 * time.Hour},
		{"Vitamin C 1000mg", "8934567000035", "Tube", "Tablet", 20, 48000, 40, 720 * 24 * time.Hour},
		{"Oresol Sachet", "8934567000042", "Box", "Sachet", 30, 36000, 0, 400 * 24 * time.Hour},
		{"Cough Syrup 60ml", "8934567000059", "Case", "Bottle", 12, 210000, 24, 300 * 24 * time.Hour},
	}

	products := make([]*product.Product, 0, len(specs))
	for _, s := range specs {
		item := product.NewProduct("", s.name, s.largeUnit, s.smallUnit, s.factor)
		barcode := s.barcode
		item.Barcode = &barcode
		item.WholesalePriceLarge = s.wholesale
		item.MinStockSmall = s.minStock
		expiry := time.Now().UTC().Add(s.expiry)
		item.ExpiryDate = &expiry

		if err := svc.Create(ctx, item); err != nil {
			return nil, fmt.Errorf("create product %q: %w", s.name, err)
		}

		log.Infow("seeded product", "code", item.Code, "name", item.Name)
		products = append(products, item)
	}

	return products, nil
}

func seedCustomers(ctx context.Context, svc *customer.Service, log *logger.Logger) error {
	type spec struct {
		name  string
		phone string
	}

	specs := []spec{
		{"Nguyen Van An", "+84901234567"},
		{"Tran Thi Binh", "+84912345678"},
	}

	for _, s := range specs {
		item := customer.NewCustomer("", s.name)
		phone := s.phone
		item.Phone = &phone

		if err := svc.Create(ctx, item); err != nil {
			return fmt.Errorf("create customer %q: %w", s.name, err)
		}

		log.Infow("seeded customer", "code", item.Code, "name", item.Name)
	}

	return nil
}

func seedOpeningStock(ctx context.Context, svc *receipt.Service, products []*product.Product, log *logger.Logger) error {
	doc := receipt.NewStockReceipt()
	supplier := "Opening balance"
	doc.SupplierName = &supplier

	for _, item := range products {
		// Receive 10 large units at 90% of the wholesale price.
		cost := types.VND(item.WholesalePriceLarge.Int64() * 9 / 10)
		doc.AddLine(item.ID, 10, cost)
	}

	if err := svc.Receive(ctx, doc); err != nil {
		return fmt.Errorf("receive opening stock: %w", err)
	}

	log.Infow("seeded opening stock", "number", doc.Number, "total", doc.TotalAmount)
	return nil
}
