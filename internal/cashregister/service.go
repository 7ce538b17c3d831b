package cashregister

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/puntoventa-backend/internal/ledger"
	"github.com/angelmondragon/puntoventa-backend/pkg/db"
	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/angelmondragon/puntoventa-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages cash drawer sessions and their movement log.
type Service interface {
	Open(ctx context.Context, userID uuid.UUID, openingBalance decimal.Decimal) (*SessionDTO, error)
	Close(ctx context.Context, userID uuid.UUID) (*SessionDTO, error)
	CurrentBalance(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error)
	PostMovement(ctx context.Context, userID uuid.UUID, input PostMovementInput) (*MovementDTO, error)
	Status(ctx context.Context, userID uuid.UUID) (*StatusDTO, error)
	ListSessions(ctx context.Context, params pagination.Params) (*SessionList, error)

	// OpenSessionTx and RecordMovementTx run inside a caller's transaction.
	OpenSessionTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.CashSession, error)
	RecordMovementTx(ctx context.Context, tx *gorm.DB, input ledger.RecordMovementInput) (*models.CashMovement, error)
}

type service struct {
	repo   *Repository
	ledger ledger.Service
	tx     txRunner
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the cash register service.
func NewService(repo *Repository, ledgerSvc ledger.Service, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cash session repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		ledger: ledgerSvc,
		tx:     tx,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Open(ctx context.Context, userID uuid.UUID, openingBalance decimal.Decimal) (*SessionDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if openingBalance.IsNegative() {
		return nil, pkgerrors.InvalidAmount("opening_balance", openingBalance, "opening balance must not be negative")
	}

	var session *models.CashSession
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		existing, err := txRepo.FindOpenByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find open cash session")
		}
		if existing != nil {
			return pkgerrors.SessionAlreadyOpen(existing.ID)
		}

		session = &models.CashSession{
			UserID:         userID,
			OpenedAt:       s.now(),
			OpeningBalance: openingBalance.Round(2),
			IsOpen:         true,
		}
		if err := txRepo.Create(ctx, session); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.SessionAlreadyOpen(uuid.Nil)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cash session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSessionID(ctx, session.ID.String())
	ctx = s.logg.WithField(ctx, "opening_balance", session.OpeningBalance.StringFixed(2))
	s.logg.Info(ctx, "cash.session_opened")

	dto := NewSessionDTO(*session, nil, false)
	return &dto, nil
}

func (s *service) Close(ctx context.Context, userID uuid.UUID) (*SessionDTO, error) {
	var dto SessionDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		session, err := txRepo.FindOpenByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find open cash session")
		}
		if session == nil {
			return pkgerrors.NoOpenSession()
		}

		movements, err := s.ledger.WithTx(tx).Movements(ctx, session.ID)
		if err != nil {
			return err
		}
		closing := ledger.BalanceOf(session.OpeningBalance, movements)
		closedAt := s.now()

		closed, err := txRepo.MarkClosed(ctx, session.ID, closing, closedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: close cash session")
		}
		if !closed {
			return pkgerrors.NoOpenSession()
		}

		session.IsOpen = false
		session.ClosedAt = &closedAt
		session.ClosingBalance = decimal.NewNullDecimal(closing)
		dto = NewSessionDTO(*session, movements, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSessionID(ctx, dto.ID.String())
	ctx = s.logg.WithField(ctx, "closing_balance", dto.CurrentBalance.StringFixed(2))
	s.logg.Info(ctx, "cash.session_closed")
	return &dto, nil
}

func (s *service) CurrentBalance(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "cash session not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cash session")
	}
	return s.ledger.Balance(ctx, *session)
}

func (s *service) PostMovement(ctx context.Context, userID uuid.UUID, input PostMovementInput) (*MovementDTO, error) {
	var movement *models.CashMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		session, err := s.OpenSessionTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return pkgerrors.NoOpenSession()
		}
		movement, err = s.RecordMovementTx(ctx, tx, ledger.RecordMovementInput{
			SessionID:   session.ID,
			Kind:        input.Kind,
			Amount:      input.Amount,
			Description: input.Description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSessionID(ctx, movement.CashSessionID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"kind":   movement.Kind.String(),
		"amount": movement.Amount.StringFixed(2),
	})
	s.logg.Info(ctx, "cash.movement_posted")

	dto := NewMovementDTO(*movement)
	return &dto, nil
}

func (s *service) Status(ctx context.Context, userID uuid.UUID) (*StatusDTO, error) {
	session, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find open cash session")
	}
	if session == nil {
		return &StatusDTO{}, nil
	}
	movements, err := s.ledger.Movements(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	dto := NewSessionDTO(*session, movements, true)
	return &StatusDTO{Session: &dto}, nil
}

func (s *service) ListSessions(ctx context.Context, params pagination.Params) (*SessionList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	sessions, next, err := s.repo.List(ctx, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cash sessions")
	}

	ids := make([]uuid.UUID, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	movements, err := s.ledger.MovementsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := &SessionList{Sessions: make([]SessionDTO, 0, len(sessions))}
	for _, session := range sessions {
		out.Sessions = append(out.Sessions, NewSessionDTO(session, movements[session.ID], false))
	}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func (s *service) OpenSessionTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.CashSession, error) {
	session, err := s.repo.WithTx(tx).FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find open cash session")
	}
	return session, nil
}

func (s *service) RecordMovementTx(ctx context.Context, tx *gorm.DB, input ledger.RecordMovementInput) (*models.CashMovement, error) {
	return s.ledger.WithTx(tx).RecordMovement(ctx, input)
}
