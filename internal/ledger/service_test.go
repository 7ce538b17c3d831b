package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeRepository struct {
	createFn func(ctx context.Context, movement *models.CashMovement) error
	listFn   func(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, movement *models.CashMovement) error {
	if f.createFn != nil {
		return f.createFn(ctx, movement)
	}
	return nil
}

func (f *fakeRepository) ListBySessionID(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error) {
	if f.listFn != nil {
		return f.listFn(ctx, sessionID)
	}
	return nil, nil
}

func (f *fakeRepository) ListBySessionIDs(ctx context.Context, sessionIDs []uuid.UUID) ([]models.CashMovement, error) {
	return nil, nil
}

func TestService_RecordMovement(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	saleID := uuid.New()
	input := RecordMovementInput{
		SessionID:   uuid.New(),
		Kind:        enums.MovementKindIncome,
		Amount:      decimal.RequireFromString("119.880"),
		Description: "  Sale " + saleID.String() + "  ",
		SaleID:      &saleID,
	}

	var created *models.CashMovement
	repo.createFn = func(ctx context.Context, movement *models.CashMovement) error {
		created = movement
		return nil
	}

	got, err := svc.RecordMovement(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordMovement error: %v", err)
	}
	if created == nil {
		t.Fatal("expected movement to be created")
	}
	if created.CashSessionID != input.SessionID || created.Kind != input.Kind {
		t.Fatalf("unexpected movement data: %+v", created)
	}
	if !created.Amount.Equal(decimal.RequireFromString("119.88")) {
		t.Fatalf("expected rounded amount, got %s", created.Amount)
	}
	if created.Description != "Sale "+saleID.String() {
		t.Fatalf("expected trimmed description, got %q", created.Description)
	}
	if created.SaleID == nil || *created.SaleID != saleID {
		t.Fatalf("missing sale reference: %+v", created)
	}
	if got != created {
		t.Fatalf("service should return created movement")
	}
}

func TestService_RecordMovementValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	tests := []struct {
		name  string
		input RecordMovementInput
		code  pkgerrors.Code
	}{
		{
			name: "missing session",
			input: RecordMovementInput{
				Kind:        enums.MovementKindIncome,
				Amount:      decimal.NewFromInt(10),
				Description: "float",
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "invalid kind",
			input: RecordMovementInput{
				SessionID:   uuid.New(),
				Kind:        enums.MovementKind("refund"),
				Amount:      decimal.NewFromInt(10),
				Description: "float",
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "amount rounds to zero",
			input: RecordMovementInput{
				SessionID:   uuid.New(),
				Kind:        enums.MovementKindIncome,
				Amount:      decimal.RequireFromString("0.004"),
				Description: "coin",
			},
			code: pkgerrors.CodeInvalidAmount,
		},
		{
			name: "zero amount",
			input: RecordMovementInput{
				SessionID:   uuid.New(),
				Kind:        enums.MovementKindExpense,
				Amount:      decimal.Zero,
				Description: "supplies",
			},
			code: pkgerrors.CodeInvalidAmount,
		},
		{
			name: "negative amount",
			input: RecordMovementInput{
				SessionID:   uuid.New(),
				Kind:        enums.MovementKindExpense,
				Amount:      decimal.NewFromInt(-3),
				Description: "supplies",
			},
			code: pkgerrors.CodeInvalidAmount,
		},
		{
			name: "blank description",
			input: RecordMovementInput{
				SessionID:   uuid.New(),
				Kind:        enums.MovementKindIncome,
				Amount:      decimal.NewFromInt(3),
				Description: "   ",
			},
			code: pkgerrors.CodeValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordMovement(context.Background(), tc.input)
			if !pkgerrors.Is(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestService_RecordMovementRepoError(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	expectedErr := errors.New("connection reset")
	repo.createFn = func(ctx context.Context, movement *models.CashMovement) error {
		return expectedErr
	}

	if _, err := svc.RecordMovement(context.Background(), RecordMovementInput{
		SessionID:   uuid.New(),
		Kind:        enums.MovementKindIncome,
		Amount:      decimal.NewFromInt(1),
		Description: "float",
	}); !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

func TestService_BalanceFoldsMovements(t *testing.T) {
	sessionID := uuid.New()
	repo := &fakeRepository{
		listFn: func(ctx context.Context, id uuid.UUID) ([]models.CashMovement, error) {
			if id != sessionID {
				t.Fatalf("unexpected session id %s", id)
			}
			return []models.CashMovement{
				{Kind: enums.MovementKindIncome, Amount: decimal.NewFromInt(200)},
				{Kind: enums.MovementKindExpense, Amount: decimal.NewFromInt(50)},
			}, nil
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	balance, err := svc.Balance(context.Background(), models.CashSession{ID: sessionID, OpeningBalance: decimal.NewFromInt(500)})
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(650)) {
		t.Fatalf("expected 650, got %s", balance)
	}
}

func TestTotals(t *testing.T) {
	income, expense := Totals([]models.CashMovement{
		{Kind: enums.MovementKindIncome, Amount: decimal.NewFromInt(100)},
		{Kind: enums.MovementKindExpense, Amount: decimal.NewFromInt(30)},
		{Kind: enums.MovementKindIncome, Amount: decimal.RequireFromString("0.50")},
	})
	if !income.Equal(decimal.RequireFromString("100.50")) {
		t.Fatalf("unexpected income %s", income)
	}
	if !expense.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected expense %s", expense)
	}
}
