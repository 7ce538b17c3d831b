package cashregister

import (
	"sort"
	"time"

	"github.com/angelmondragon/puntoventa-backend/internal/ledger"
	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionDTO is the API view of a cash session with its computed balance.
type SessionDTO struct {
	ID             uuid.UUID        `json:"id"`
	UserID         uuid.UUID        `json:"user_id"`
	Username       string           `json:"username,omitempty"`
	OpenedAt       time.Time        `json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`
	IsOpen         bool             `json:"is_open"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	ClosingBalance *decimal.Decimal `json:"closing_balance,omitempty"`
	CurrentBalance decimal.Decimal  `json:"current_balance"`
	TotalIncome    decimal.Decimal  `json:"total_income"`
	TotalExpense   decimal.Decimal  `json:"total_expense"`
	Movements      []MovementDTO    `json:"movements,omitempty"`
}

// MovementDTO is the API view of a cash movement.
type MovementDTO struct {
	ID          uuid.UUID          `json:"id"`
	SessionID   uuid.UUID          `json:"cash_session_id"`
	Kind        enums.MovementKind `json:"kind"`
	Amount      decimal.Decimal    `json:"amount"`
	Description string             `json:"description"`
	SaleID      *uuid.UUID         `json:"sale_id,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// StatusDTO describes the drawer of the calling user. Session is nil when
// no session is open.
type StatusDTO struct {
	Session *SessionDTO `json:"session"`
}

// SessionList is a page of sessions.
type SessionList struct {
	Sessions   []SessionDTO `json:"sessions"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// PostMovementInput is a manual drawer entry made by a user.
type PostMovementInput struct {
	Kind        enums.MovementKind
	Amount      decimal.Decimal
	Description string
}

func NewMovementDTO(m models.CashMovement) MovementDTO {
	return MovementDTO{
		ID:          m.ID,
		SessionID:   m.CashSessionID,
		Kind:        m.Kind,
		Amount:      m.Amount,
		Description: m.Description,
		SaleID:      m.SaleID,
		CreatedAt:   m.CreatedAt,
	}
}

// NewSessionDTO summarizes a session from its movement log. When
// withMovements is set the log is attached newest first.
func NewSessionDTO(session models.CashSession, movements []models.CashMovement, withMovements bool) SessionDTO {
	income, expense := ledger.Totals(movements)
	dto := SessionDTO{
		ID:             session.ID,
		UserID:         session.UserID,
		OpenedAt:       session.OpenedAt,
		ClosedAt:       session.ClosedAt,
		IsOpen:         session.IsOpen,
		OpeningBalance: session.OpeningBalance,
		CurrentBalance: ledger.BalanceOf(session.OpeningBalance, movements),
		TotalIncome:    income,
		TotalExpense:   expense,
	}
	if session.User != nil {
		dto.Username = session.User.Username
	}
	if session.ClosingBalance.Valid {
		closing := session.ClosingBalance.Decimal
		dto.ClosingBalance = &closing
	}
	if withMovements {
		dto.Movements = make([]MovementDTO, 0, len(movements))
		for _, m := range movements {
			dto.Movements = append(dto.Movements, NewMovementDTO(m))
		}
		sort.SliceStable(dto.Movements, func(i, j int) bool {
			return dto.Movements[i].CreatedAt.After(dto.Movements[j].CreatedAt)
		})
	}
	return dto
}
