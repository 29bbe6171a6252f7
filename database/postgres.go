package database

import (
	"fmt"
	"os"

	"fulfillment-service/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is the shared GORM handle, set by Connect.
var DB *gorm.DB

// Connect opens the Postgres connection from environment variables.
func Connect(logger *zap.Logger) (*gorm.DB, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	dbUser := os.Getenv("POSTGRES_USER")
	dbPassword := os.Getenv("POSTGRES_PASSWORD")
	dbName := os.Getenv("POSTGRES_DB")
	dbHost := os.Getenv("POSTGRES_HOST")
	dbPort := os.Getenv("POSTGRES_PORT")
	dbSSLMode := os.Getenv("POSTGRES_SSLMODE")
	dbTimeZone := os.Getenv("POSTGRES_TIMEZONE")

	if dbUser == "" {
		return nil, fmt.Errorf("POSTGRES_USER not set")
	}
	if dbPassword == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD not set")
	}
	if dbName == "" {
		return nil, fmt.Errorf("POSTGRES_DB not set")
	}
	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbSSLMode == "" {
		dbSSLMode = "disable"
	}
	if dbTimeZone == "" {
		dbTimeZone = "UTC"
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		dbHost, dbUser, dbPassword, dbName, dbPort, dbSSLMode, dbTimeZone)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	DB = db
	logger.Info("Connected to Postgres", zap.String("host", dbHost), zap.String("db", dbName))
	return db, nil
}

// Close releases the underlying connection pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// checkConstraints mirror the domain invariants inside Postgres as a last
// line of defense independent of the application code.
var checkConstraints = []struct {
	table, name, check string
}{
	{"inventory_records", "chk_inventory_balance",
		"total_stock = available_stock + reserved_stock + dispatched_stock"},
	{"inventory_records", "chk_inventory_non_negative",
		"total_stock >= 0 AND available_stock >= 0 AND reserved_stock >= 0 AND dispatched_stock >= 0"},
	{"order_items", "chk_order_item_quantity", "quantity > 0"},
	{"orders", "chk_order_status",
		"status IN ('pending','approved','packed','dispatched','cancelled','delivered')"},
	{"invoices", "chk_invoice_status",
		"status IN ('draft','sent','partial','paid','overdue','void')"},
	{"invoices", "chk_invoice_paid_within_total", "paid_amount <= total_amount"},
	{"invoices", "chk_invoice_balance_non_negative", "balance_due >= 0"},
	{"invoice_payments", "chk_payment_amount_positive", "amount > 0"},
}

// Migrate runs AutoMigrate for all models and applies the CHECK constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Client{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.InventoryRecord{},
		&models.Invoice{},
		&models.InvoiceLineItem{},
		&models.InvoicePayment{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	for _, c := range checkConstraints {
		drop := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", c.table, c.name)
		if err := db.Exec(drop).Error; err != nil {
			return fmt.Errorf("dropping constraint %s: %w", c.name, err)
		}
		add := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", c.table, c.name, c.check)
		if err := db.Exec(add).Error; err != nil {
			return fmt.Errorf("adding constraint %s: %w", c.name, err)
		}
	}

	return nil
}
