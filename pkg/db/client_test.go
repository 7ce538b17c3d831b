package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:dbclient_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestWithTx_TypedErrorsPassThrough(t *testing.T) {
	client := NewFromGorm(newTestDB(t))

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return pkgerrors.NoOpenSession()
	})
	if !pkgerrors.Is(err, pkgerrors.CodeNoOpenSession) {
		t.Fatalf("expected NO_OPEN_SESSION, got %v", err)
	}
}

func TestWithTx_TransientErrorsBecomeTransactionFailed(t *testing.T) {
	client := NewFromGorm(newTestDB(t))

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return fmt.Errorf("update stock: %w", &pgconn.PgError{Code: pgLockNotAvailable})
	})
	if !pkgerrors.Is(err, pkgerrors.CodeTransactionFailed) {
		t.Fatalf("expected TRANSACTION_FAILED, got %v", err)
	}
}

func TestWithTx_WrappedTransientErrorsBecomeTransactionFailed(t *testing.T) {
	client := NewFromGorm(newTestDB(t))

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, &pgconn.PgError{Code: pgDeadlockDetected}, "db: decrement stock")
	})
	if !pkgerrors.Is(err, pkgerrors.CodeTransactionFailed) {
		t.Fatalf("expected TRANSACTION_FAILED, got %v", err)
	}

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("disk full"), "db: decrement stock")
	})
	if !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR to pass through, got %v", err)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic to roll back, got %d rows", count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&testModel{Name: "dup"}).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	err := db.Create(&testModel{Name: "dup"}).Error
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected sqlite unique violation to be detected: %v", err)
	}

	pgErr := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_cash_sessions_user_open"}
	if !IsUniqueViolation(pgErr, "idx_cash_sessions_user_open") {
		t.Fatal("expected pg unique violation to match constraint")
	}
	if IsUniqueViolation(pgErr, "other_constraint") {
		t.Fatal("unexpected match for other constraint")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Fatal("plain error should not match")
	}
}

func TestIsTransient(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":           {err: nil, want: false},
		"deadlock":      {err: &pgconn.PgError{Code: pgDeadlockDetected}, want: true},
		"serialization": {err: &pgconn.PgError{Code: pgSerializationFailure}, want: true},
		"unique":        {err: &pgconn.PgError{Code: pgUniqueViolation}, want: false},
		"sqlite busy":   {err: errors.New("database is locked"), want: true},
		"sqlite driver": {err: sqlite3.Error{Code: sqlite3.ErrBusy}, want: true},
		"wrapped busy":  {err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("database is locked"), "db: decrement stock"), want: true},
		"other":         {err: errors.New("syntax error"), want: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient=%v want %v", got, tc.want)
			}
		})
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}
