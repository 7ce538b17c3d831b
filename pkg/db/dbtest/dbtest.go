// Package dbtest provides SQLite-backed fixtures for repository and service tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/db"
	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory database with the full schema. The pool is
// pinned to one connection so concurrent transactions queue instead of
// tripping over SQLite's writer lock.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn := open(t, fmt.Sprintf("file:pos_%s?mode=memory&cache=shared", uuid.NewString()))
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return conn
}

// NewFileDB opens a schema-loaded SQLite file that other connections can
// share, with no busy wait so lock contention fails immediately. It returns
// the DSN for opening those extra connections.
func NewFileDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "pos.db") + "?_busy_timeout=0"
	conn := open(t, dsn)
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return conn, dsn
}

// Open connects to an existing test database, e.g. one from NewFileDB.
func Open(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	return open(t, dsn)
}

func open(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// NewClient wraps NewDB in a db.Client.
func NewClient(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := NewDB(t)
	return db.NewFromGorm(conn), conn
}

func MustCreateUser(t *testing.T, conn *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &models.User{
		Username:     "user_" + suffix,
		Email:        fmt.Sprintf("pos_test_%s@example.com", suffix),
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "Cashier",
		Role:         role,
		IsActive:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func MustCreateProduct(t *testing.T, conn *gorm.DB, name string, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// StockOf reloads the persisted stock for a product.
func StockOf(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}
