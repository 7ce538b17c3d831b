package migrate_test

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/puntoventa-backend/pkg/migrate"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file found for %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCatalogMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "*_create_catalog_tables.sql"), []string{
		"CREATE TABLE IF NOT EXISTS categories",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name",
		"CREATE TABLE IF NOT EXISTS products",
		"CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0)",
		"DROP TABLE IF EXISTS products",
	})
}

func TestSalesMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "*_create_sales_tables.sql"), []string{
		"CREATE TABLE IF NOT EXISTS sales",
		"CREATE TABLE IF NOT EXISTS sale_lines",
		"CONSTRAINT chk_sale_lines_quantity_positive CHECK (quantity > 0)",
		"FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT",
		"CONSTRAINT chk_sales_mixed_only_for_mixed",
	})
}

func TestCashMigrationEnforcesSingleOpenSession(t *testing.T) {
	assertContains(t, readMigration(t, "*_create_cash_tables.sql"), []string{
		"CREATE TABLE IF NOT EXISTS cash_sessions",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cash_sessions_user_open ON cash_sessions (user_id) WHERE is_open = true",
		"CHECK (amount > 0)",
		"CHECK (kind IN ('income', 'expense'))",
	})
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir returned error: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "add_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Sale Notes!")
	if err != nil {
		t.Fatalf("CreateSQLMigration returned error: %v", err)
	}
	if !strings.HasSuffix(path, "_add_sale_notes.sql") {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationTableSkeleton(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "create_suppliers_table")
	if err != nil {
		t.Fatalf("CreateSQLMigration returned error: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read created migration: %v", err)
	}
	assertContains(t, string(body), []string{
		"CREATE TABLE IF NOT EXISTS suppliers",
		"id UUID PRIMARY KEY",
		"DROP TABLE IF EXISTS suppliers;",
	})

	if _, err := migrate.CreateSQLMigration(dir, "Create Suppliers Table"); err == nil {
		t.Fatal("expected a reused migration name to be refused")
	}
}

func TestValidateDirRejectsBrokenBodies(t *testing.T) {
	cases := map[string]string{
		"20260301090000_missing_down.sql":  "-- +goose Up\nSELECT 1;\n",
		"20260301090000_down_first.sql":    "-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n",
		"20260301090000_unterminated.sql":  "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"20261399000000_bad_timestamp.sql": "-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
				t.Fatalf("write file: %v", err)
			}
			if err := migrate.ValidateDir(dir); err == nil {
				t.Fatalf("expected %s to fail validation", name)
			}
		})
	}
}

func TestEmbeddedMigrationsMatchSourceTree(t *testing.T) {
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(embedded) != len(onDisk) || len(embedded) == 0 {
		t.Fatalf("embedded %d migrations, source tree has %d", len(embedded), len(onDisk))
	}
	for i, path := range onDisk {
		if filepath.Base(path) != embedded[i] {
			t.Errorf("embedded[%d] = %s, want %s", i, embedded[i], filepath.Base(path))
		}
	}
}

func TestAutoMigrateModelsBuildsSchema(t *testing.T) {
	dsn := fmt.Sprintf("file:migrate_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrate.AutoMigrateModels(context.Background(), conn); err != nil {
		t.Fatalf("AutoMigrateModels returned error: %v", err)
	}
	for _, table := range []string{"users", "categories", "products", "sales", "sale_lines", "cash_sessions", "cash_movements", "sale_versions"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}
	if !conn.Migrator().HasIndex("cash_sessions", "idx_cash_sessions_user_open") {
		t.Error("expected partial unique index on open sessions")
	}
}
