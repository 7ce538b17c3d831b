package sales

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/puntoventa-backend/internal/ledger"
	"github.com/angelmondragon/puntoventa-backend/internal/stockfeed"
	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/angelmondragon/puntoventa-backend/pkg/metrics"
	"github.com/angelmondragon/puntoventa-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const noReasonGiven = "no reason given"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockAdjuster moves product stock inside the caller's transaction.
type stockAdjuster interface {
	Take(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*models.Product, error)
	Return(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (*models.Product, error)
	Lookup(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error)
}

// cashDrawer is the slice of the cash register the ledger posts to.
type cashDrawer interface {
	OpenSessionTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.CashSession, error)
	RecordMovementTx(ctx context.Context, tx *gorm.DB, input ledger.RecordMovementInput) (*models.CashMovement, error)
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// LineInput is a product and quantity rung up at the counter.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type RecordSaleInput struct {
	Lines   []LineInput
	Payment PaymentInput
}

// AmendLineInput keeps a persisted line when LineID is set, otherwise adds one.
type AmendLineInput struct {
	LineID    *uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

type AmendSaleInput struct {
	PaymentMethod *enums.PaymentMethod
	MixedCash     decimal.NullDecimal
	MixedOther    decimal.NullDecimal
	Lines         []AmendLineInput
	Reason        *string
}

type ListSalesInput struct {
	Status enums.SaleStatusFilter
	UserID *uuid.UUID
	pagination.Params
}

// Service is the sale ledger.
type Service interface {
	RecordSale(ctx context.Context, actor Actor, input RecordSaleInput) (*RecordResult, error)
	VoidSale(ctx context.Context, actor Actor, saleID uuid.UUID, reason *string) (*SaleDTO, error)
	AmendSale(ctx context.Context, actor Actor, saleID uuid.UUID, input AmendSaleInput) (*SaleDTO, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*SaleDTO, error)
	ListSales(ctx context.Context, actor Actor, input ListSalesInput) (*SaleList, error)
	Ticket(ctx context.Context, saleID uuid.UUID) (*TicketDTO, error)
	History(ctx context.Context, saleID uuid.UUID) ([]VersionDTO, error)
	CompareVersions(ctx context.Context, saleID uuid.UUID, from, to int) (*ComparisonDTO, error)
}

// Options tunes presentation and payment checks.
type Options struct {
	Location          *time.Location
	StoreName         string
	MinReferenceChars int
}

type service struct {
	repo      *Repository
	inventory stockAdjuster
	cash      cashDrawer
	tx        txRunner
	feed      stockfeed.Publisher
	metrics   *metrics.SalesMetrics
	logg      *logger.Logger
	opts      Options
	now       func() time.Time
}

// NewService wires the sale ledger.
func NewService(repo *Repository, inventory stockAdjuster, cash cashDrawer, tx txRunner, feed stockfeed.Publisher, salesMetrics *metrics.SalesMetrics, logg *logger.Logger, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory required")
	}
	if cash == nil {
		return nil, fmt.Errorf("cash register required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if feed == nil {
		feed = stockfeed.Nop{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MinReferenceChars <= 0 {
		opts.MinReferenceChars = DefaultMinReferenceChars
	}
	return &service{
		repo:      repo,
		inventory: inventory,
		cash:      cash,
		tx:        tx,
		feed:      feed,
		metrics:   salesMetrics,
		logg:      logg,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) RecordSale(ctx context.Context, actor Actor, input RecordSaleInput) (*RecordResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	lines, err := mergeLines(input.Lines)
	if err != nil {
		return nil, err
	}
	if !input.Payment.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").WithDetails(map[string]any{
			"payment_method": string(input.Payment.Method),
		})
	}

	var (
		result  RecordResult
		touched = map[uuid.UUID]*models.Product{}
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		sale := &models.Sale{
			UserID:        actor.UserID,
			PaymentMethod: input.Payment.Method,
		}

		total := decimal.Zero
		for _, line := range lines {
			product, err := s.inventory.Take(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			touched[product.ID] = product
			subtotal := lineSubtotal(product.Price, line.Quantity)
			sale.Lines = append(sale.Lines, models.SaleLine{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
				Subtotal:  subtotal,
			})
			total = total.Add(subtotal)
		}

		settlement, err := Settle(input.Payment, total, s.opts.MinReferenceChars)
		if err != nil {
			return err
		}
		sale.Total = total
		sale.MixedCash = settlement.MixedCash
		sale.MixedOther = settlement.MixedOther
		if err := txRepo.Create(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale")
		}

		result.Change = settlement.Change
		result.CashRegistered = true
		if settlement.CashPortion.IsPositive() {
			session, err := s.cash.OpenSessionTx(ctx, tx, actor.UserID)
			if err != nil {
				return err
			}
			if session == nil {
				result.CashRegistered = false
			} else if _, err := s.cash.RecordMovementTx(ctx, tx, ledger.RecordMovementInput{
				SessionID:   session.ID,
				Kind:        enums.MovementKindIncome,
				Amount:      settlement.CashPortion,
				Description: fmt.Sprintf("Sale %s", sale.ID),
				SaleID:      &sale.ID,
			}); err != nil {
				return err
			}
		}

		stored, err := s.appendVersion(ctx, txRepo, sale.ID, enums.SaleVersionCreated, actor.UserID, nil)
		if err != nil {
			return err
		}
		result.Sale = NewSaleDTO(stored, true)
		return nil
	})
	if err != nil {
		s.rejected(ctx, "sale.record_failed", err)
		return nil, err
	}

	s.publish(ctx, touched, "sale")
	s.metrics.SaleRecorded(result.Sale.PaymentMethod.String(), result.Sale.Total)

	ctx = s.logg.WithSaleID(ctx, result.Sale.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"total":           result.Sale.Total.StringFixed(2),
		"payment_method":  result.Sale.PaymentMethod.String(),
		"cash_registered": result.CashRegistered,
	})
	if !result.CashRegistered {
		s.logg.Warn(ctx, "sale.recorded_without_cash_session")
	}
	s.logg.Info(ctx, "sale.recorded")
	return &result, nil
}

func (s *service) VoidSale(ctx context.Context, actor Actor, saleID uuid.UUID, reason *string) (*SaleDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	reason = trimOptional(reason)

	var (
		dto     SaleDTO
		touched = map[uuid.UUID]*models.Product{}
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		sale, err := s.loadSale(ctx, txRepo, saleID)
		if err != nil {
			return err
		}
		if sale.Voided {
			return pkgerrors.AlreadyVoided(sale.ID)
		}

		session, err := s.cash.OpenSessionTx(ctx, tx, actor.UserID)
		if err != nil {
			return err
		}
		if session == nil {
			return pkgerrors.NoOpenSession()
		}

		ok, err := txRepo.MarkVoided(ctx, sale.ID, actor.UserID, reason, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: void sale")
		}
		if !ok {
			return pkgerrors.AlreadyVoided(sale.ID)
		}

		for _, line := range sale.Lines {
			product, err := s.inventory.Return(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			touched[product.ID] = product
		}

		if sale.Total.IsPositive() {
			description := fmt.Sprintf("Void of sale %s - %s", sale.ID, reasonOrDefault(reason))
			if _, err := s.cash.RecordMovementTx(ctx, tx, ledger.RecordMovementInput{
				SessionID:   session.ID,
				Kind:        enums.MovementKindExpense,
				Amount:      sale.Total,
				Description: description,
				SaleID:      &sale.ID,
			}); err != nil {
				return err
			}
		}

		stored, err := s.appendVersion(ctx, txRepo, sale.ID, enums.SaleVersionVoided, actor.UserID, reason)
		if err != nil {
			return err
		}
		dto = NewSaleDTO(stored, true)
		return nil
	})
	if err != nil {
		s.rejected(ctx, "sale.void_failed", err)
		return nil, err
	}

	s.publish(ctx, touched, "void")
	s.metrics.SaleVoided()

	ctx = s.logg.WithSaleID(ctx, dto.ID.String())
	ctx = s.logg.WithField(ctx, "total", dto.Total.StringFixed(2))
	s.logg.Info(ctx, "sale.voided")
	return &dto, nil
}

func (s *service) AmendSale(ctx context.Context, actor Actor, saleID uuid.UUID, input AmendSaleInput) (*SaleDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	if err := validateAmendLines(input.Lines); err != nil {
		return nil, err
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").WithDetails(map[string]any{
			"payment_method": string(*input.PaymentMethod),
		})
	}
	reason := trimOptional(input.Reason)

	var (
		dto     SaleDTO
		touched = map[uuid.UUID]*models.Product{}
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		sale, err := s.loadSale(ctx, txRepo, saleID)
		if err != nil {
			return err
		}
		if sale.Voided {
			return pkgerrors.AlreadyVoided(sale.ID)
		}

		// Previous quantities come from the lines as read here, never from
		// values updated later in this transaction.
		persisted := make(map[uuid.UUID]models.SaleLine, len(sale.Lines))
		for _, line := range sale.Lines {
			persisted[line.ID] = line
		}
		retained := make(map[uuid.UUID]bool, len(input.Lines))
		for _, line := range input.Lines {
			if line.LineID == nil {
				continue
			}
			if _, ok := persisted[*line.LineID]; !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale line not found").WithDetails(map[string]any{
					"line_id": *line.LineID,
				})
			}
			retained[*line.LineID] = true
		}

		for _, line := range sale.Lines {
			if retained[line.ID] {
				continue
			}
			product, err := s.inventory.Return(ctx, tx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			touched[product.ID] = product
			if err := txRepo.DeleteLine(ctx, line.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete sale line")
			}
		}

		for _, in := range input.Lines {
			var product *models.Product
			if in.LineID == nil {
				product, err = s.inventory.Take(ctx, tx, in.ProductID, in.Quantity)
				if err != nil {
					return err
				}
				if err := txRepo.CreateLine(ctx, &models.SaleLine{
					SaleID:    sale.ID,
					ProductID: product.ID,
					Quantity:  in.Quantity,
					UnitPrice: product.Price,
					Subtotal:  lineSubtotal(product.Price, in.Quantity),
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale line")
				}
				touched[product.ID] = product
				continue
			}

			prev := persisted[*in.LineID]
			product, err = s.adjustRetained(ctx, tx, prev, in, touched)
			if err != nil {
				return err
			}
			if err := txRepo.UpdateLine(ctx, &models.SaleLine{
				ID:        prev.ID,
				ProductID: product.ID,
				Quantity:  in.Quantity,
				UnitPrice: product.Price,
				Subtotal:  lineSubtotal(product.Price, in.Quantity),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update sale line")
			}
		}

		total, err := txRepo.SumLines(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sum sale lines")
		}
		sale.Total = total
		if err := applyAmendedPayment(sale, input); err != nil {
			return err
		}
		ok, err := txRepo.UpdateHeader(ctx, sale)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update sale")
		}
		if !ok {
			return pkgerrors.AlreadyVoided(sale.ID)
		}

		stored, err := s.appendVersion(ctx, txRepo, sale.ID, enums.SaleVersionAmended, actor.UserID, reason)
		if err != nil {
			return err
		}
		dto = NewSaleDTO(stored, true)
		return nil
	})
	if err != nil {
		s.rejected(ctx, "sale.amend_failed", err)
		return nil, err
	}

	s.publish(ctx, touched, "amend")
	s.metrics.SaleAmended()

	ctx = s.logg.WithSaleID(ctx, dto.ID.String())
	ctx = s.logg.WithField(ctx, "total", dto.Total.StringFixed(2))
	s.logg.Info(ctx, "sale.amended")
	return &dto, nil
}

// adjustRetained moves stock for a kept line and returns the product it now
// points at.
func (s *service) adjustRetained(ctx context.Context, tx *gorm.DB, prev models.SaleLine, in AmendLineInput, touched map[uuid.UUID]*models.Product) (*models.Product, error) {
	if prev.ProductID != in.ProductID {
		old, err := s.inventory.Return(ctx, tx, prev.ProductID, prev.Quantity)
		if err != nil {
			return nil, err
		}
		touched[old.ID] = old
		product, err := s.inventory.Take(ctx, tx, in.ProductID, in.Quantity)
		if err != nil {
			return nil, err
		}
		touched[product.ID] = product
		return product, nil
	}

	var (
		product *models.Product
		err     error
	)
	delta := prev.Quantity - in.Quantity
	switch {
	case delta > 0:
		product, err = s.inventory.Return(ctx, tx, in.ProductID, delta)
	case delta < 0:
		product, err = s.inventory.Take(ctx, tx, in.ProductID, -delta)
	default:
		return s.inventory.Lookup(ctx, tx, in.ProductID)
	}
	if err != nil {
		return nil, err
	}
	touched[product.ID] = product
	return product, nil
}

func (s *service) GetSale(ctx context.Context, saleID uuid.UUID) (*SaleDTO, error) {
	sale, err := s.loadSale(ctx, s.repo, saleID)
	if err != nil {
		return nil, err
	}
	dto := NewSaleDTO(sale, true)
	return &dto, nil
}

func (s *service) ListSales(ctx context.Context, actor Actor, input ListSalesInput) (*SaleList, error) {
	status := input.Status
	if status == "" {
		status = enums.SaleStatusAll
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sale status")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	filters := ListFilters{Status: status, UserID: input.UserID}
	if !actor.Role.CanSupervise() {
		self := actor.UserID
		filters.UserID = &self
	}

	sales, next, err := s.repo.List(ctx, filters, cursor, input.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sales")
	}
	out := &SaleList{Sales: make([]SaleDTO, 0, len(sales))}
	for i := range sales {
		out.Sales = append(out.Sales, NewSaleDTO(&sales[i], false))
	}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func (s *service) Ticket(ctx context.Context, saleID uuid.UUID) (*TicketDTO, error) {
	sale, err := s.loadSale(ctx, s.repo, saleID)
	if err != nil {
		return nil, err
	}

	ticket := &TicketDTO{
		StoreName:     s.opts.StoreName,
		SaleID:        sale.ID,
		Date:          sale.CreatedAt.In(s.opts.Location).Format(TicketTimeLayout),
		PaymentMethod: PaymentLabel(sale),
		Total:         sale.Total.StringFixed(2),
		Voided:        sale.Voided,
		Lines:         make([]TicketLine, 0, len(sale.Lines)),
		PrintedAt:     s.now().In(s.opts.Location).Format(TicketTimeLayout),
	}
	if sale.User != nil {
		ticket.Seller = sale.User.DisplayName()
	}
	for _, line := range sale.Lines {
		entry := TicketLine{Quantity: line.Quantity, UnitPrice: line.UnitPrice, Subtotal: line.Subtotal}
		if line.Product != nil {
			entry.ProductName = line.Product.Name
		}
		ticket.Lines = append(ticket.Lines, entry)
	}
	return ticket, nil
}

func (s *service) History(ctx context.Context, saleID uuid.UUID) ([]VersionDTO, error) {
	if _, err := s.loadSale(ctx, s.repo, saleID); err != nil {
		return nil, err
	}
	versions, err := s.repo.Versions(ctx, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sale versions")
	}
	actors, err := s.actorNames(ctx, versions...)
	if err != nil {
		return nil, err
	}

	out := make([]VersionDTO, 0, len(versions))
	for i := range versions {
		dto, err := newVersionDTO(versions[i], actors)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	// Newest first: each entry is compared with the one after it.
	for i := 0; i+1 < len(out); i++ {
		changes := Diff(out[i+1].Sale, out[i].Sale)
		out[i].Changes = &changes
	}
	return out, nil
}

func (s *service) CompareVersions(ctx context.Context, saleID uuid.UUID, from, to int) (*ComparisonDTO, error) {
	a, err := s.repo.FindVersion(ctx, saleID, from)
	if err != nil {
		return nil, versionLookupError(err, from)
	}
	b, err := s.repo.FindVersion(ctx, saleID, to)
	if err != nil {
		return nil, versionLookupError(err, to)
	}
	actors, err := s.actorNames(ctx, *a, *b)
	if err != nil {
		return nil, err
	}
	fromDTO, err := newVersionDTO(*a, actors)
	if err != nil {
		return nil, err
	}
	toDTO, err := newVersionDTO(*b, actors)
	if err != nil {
		return nil, err
	}
	return &ComparisonDTO{
		From:    fromDTO,
		To:      toDTO,
		Changes: Diff(fromDTO.Sale, toDTO.Sale),
	}, nil
}

func (s *service) loadSale(ctx context.Context, repo *Repository, saleID uuid.UUID) (*models.Sale, error) {
	sale, err := repo.FindByID(ctx, saleID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sale")
	}
	return sale, nil
}

// appendVersion reloads the sale as the transaction sees it and stores the
// snapshot.
func (s *service) appendVersion(ctx context.Context, repo *Repository, saleID uuid.UUID, action enums.SaleVersionAction, actorID uuid.UUID, reason *string) (*models.Sale, error) {
	stored, err := s.loadSale(ctx, repo, saleID)
	if err != nil {
		return nil, err
	}
	raw, err := encodeSnapshot(SnapshotOf(stored))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode sale snapshot")
	}
	if err := repo.AppendVersion(ctx, &models.SaleVersion{
		SaleID:   saleID,
		Action:   action,
		ActorID:  actorID,
		Reason:   reason,
		Snapshot: raw,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale version")
	}
	return stored, nil
}

func (s *service) actorNames(ctx context.Context, versions ...models.SaleVersion) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(versions))
	for _, v := range versions {
		ids = append(ids, v.ActorID)
	}
	names, err := s.repo.UsernamesByID(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load actors")
	}
	return names, nil
}

func (s *service) publish(ctx context.Context, touched map[uuid.UUID]*models.Product, reason string) {
	if len(touched) == 0 {
		return
	}
	at := s.now()
	updates := make([]stockfeed.Update, 0, len(touched))
	for _, p := range touched {
		updates = append(updates, stockfeed.Update{
			ProductID: p.ID,
			Name:      p.Name,
			Stock:     p.Stock,
			Price:     p.Price,
			Reason:    reason,
			At:        at,
		})
	}
	s.feed.Publish(ctx, updates...)
}

func (s *service) rejected(ctx context.Context, event string, err error) {
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.metrics.Rejected(code)
	ctx = s.logg.WithField(ctx, "error_code", code)
	if pkgerrors.MetadataFor(pkgerrors.Code(code)).HTTPStatus >= 500 {
		s.logg.Error(ctx, event, err)
		return
	}
	s.logg.Warn(ctx, event)
}

func newVersionDTO(v models.SaleVersion, actors map[uuid.UUID]string) (VersionDTO, error) {
	snapshot, err := decodeSnapshot(v.Snapshot)
	if err != nil {
		return VersionDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode sale snapshot")
	}
	return VersionDTO{
		Version:   v.Version,
		Action:    v.Action,
		ActorID:   v.ActorID,
		Actor:     actors[v.ActorID],
		Reason:    v.Reason,
		CreatedAt: v.CreatedAt,
		Sale:      snapshot,
	}, nil
}

func versionLookupError(err error, version int) error {
	if isNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "sale version not found").WithDetails(map[string]any{
			"version": version,
		})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sale version")
}

// mergeLines validates counter lines and folds repeated products together,
// ordered by product id so concurrent sales lock rows in the same order.
func mergeLines(lines []LineInput) ([]LineInput, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	merged := make(map[uuid.UUID]int, len(lines))
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required").WithDetails(map[string]any{"line": i})
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").WithDetails(map[string]any{"line": i})
		}
		merged[line.ProductID] += line.Quantity
	}
	out := make([]LineInput, 0, len(merged))
	for id, qty := range merged {
		out = append(out, LineInput{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out, nil
}

func validateAmendLines(lines []AmendLineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	seen := make(map[uuid.UUID]bool, len(lines))
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required").WithDetails(map[string]any{"line": i})
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").WithDetails(map[string]any{"line": i})
		}
		if line.LineID != nil {
			if seen[*line.LineID] {
				return pkgerrors.New(pkgerrors.CodeValidation, "sale line listed twice").WithDetails(map[string]any{"line": i})
			}
			seen[*line.LineID] = true
		}
	}
	return nil
}

// applyAmendedPayment sets the payment columns for the recomputed total.
// Mixed splits must still cover the total; other methods drop them.
func applyAmendedPayment(sale *models.Sale, input AmendSaleInput) error {
	if input.PaymentMethod != nil {
		sale.PaymentMethod = *input.PaymentMethod
	}
	if sale.PaymentMethod != enums.PaymentMethodMixed {
		sale.MixedCash = decimal.NullDecimal{}
		sale.MixedOther = decimal.NullDecimal{}
		return nil
	}

	if input.MixedCash.Valid {
		sale.MixedCash = decimal.NewNullDecimal(input.MixedCash.Decimal.Round(2))
	}
	if input.MixedOther.Valid {
		sale.MixedOther = decimal.NewNullDecimal(input.MixedOther.Decimal.Round(2))
	}
	if !sale.MixedCash.Valid || !sale.MixedOther.Valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "mixed payments require cash and other amounts")
	}
	if sale.MixedCash.Decimal.IsNegative() {
		return pkgerrors.InvalidAmount("mixed_cash", sale.MixedCash.Decimal, "mixed cash must not be negative")
	}
	if sale.MixedOther.Decimal.IsNegative() {
		return pkgerrors.InvalidAmount("mixed_other", sale.MixedOther.Decimal, "mixed other must not be negative")
	}
	paid := sale.MixedCash.Decimal.Add(sale.MixedOther.Decimal)
	if paid.LessThan(sale.Total) {
		return pkgerrors.InvalidAmount("mixed_total", paid, "mixed amounts do not cover the total")
	}
	return nil
}

func lineSubtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

func reasonOrDefault(reason *string) string {
	if reason == nil {
		return noReasonGiven
	}
	return *reason
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
