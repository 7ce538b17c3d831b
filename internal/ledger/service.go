package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service records and sums the append-only cash movement log of a session.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordMovement(ctx context.Context, input RecordMovementInput) (*models.CashMovement, error)
	Movements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error)
	MovementsFor(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID][]models.CashMovement, error)
	Balance(ctx context.Context, session models.CashSession) (decimal.Decimal, error)
}

type service struct {
	repo Repository
}

// RecordMovementInput captures the immutable data a movement requires.
type RecordMovementInput struct {
	SessionID   uuid.UUID          `json:"cash_session_id"`
	Kind        enums.MovementKind `json:"kind"`
	Amount      decimal.Decimal    `json:"amount"`
	Description string             `json:"description"`
	SaleID      *uuid.UUID         `json:"sale_id,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordMovement(ctx context.Context, input RecordMovementInput) (*models.CashMovement, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash session id is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", input.Kind))
	}
	// Stored amounts carry cents; the check applies to what will be stored.
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.InvalidAmount("amount", input.Amount, "movement amount must be at least 0.01")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}

	movement := &models.CashMovement{
		CashSessionID: input.SessionID,
		Kind:          input.Kind,
		Amount:        amount,
		Description:   description,
		SaleID:        input.SaleID,
	}

	if err := s.repo.Create(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cash movement")
	}
	return movement, nil
}

func (s *service) Movements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error) {
	movements, err := s.repo.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cash movements")
	}
	return movements, nil
}

func (s *service) MovementsFor(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID][]models.CashMovement, error) {
	movements, err := s.repo.ListBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cash movements")
	}
	grouped := make(map[uuid.UUID][]models.CashMovement, len(sessionIDs))
	for _, movement := range movements {
		grouped[movement.CashSessionID] = append(grouped[movement.CashSessionID], movement)
	}
	return grouped, nil
}

// Balance recomputes opening + income - expense from the stored log.
func (s *service) Balance(ctx context.Context, session models.CashSession) (decimal.Decimal, error) {
	movements, err := s.Movements(ctx, session.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return BalanceOf(session.OpeningBalance, movements), nil
}

// BalanceOf folds movements onto an opening balance.
func BalanceOf(opening decimal.Decimal, movements []models.CashMovement) decimal.Decimal {
	balance := opening
	for _, movement := range movements {
		balance = balance.Add(movement.Signed())
	}
	return balance
}

// Totals splits movements into summed income and expense.
func Totals(movements []models.CashMovement) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, movement := range movements {
		switch movement.Kind {
		case enums.MovementKindIncome:
			income = income.Add(movement.Amount)
		case enums.MovementKindExpense:
			expense = expense.Add(movement.Amount)
		}
	}
	return income, expense
}
