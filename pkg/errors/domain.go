package errors

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockShortage describes the product that could not cover a requested quantity.
type StockShortage struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

func InsufficientStock(productID uuid.UUID, productName string, requested, available int) *Error {
	return New(CodeInsufficientStock, "insufficient stock for "+productName).WithDetails(StockShortage{
		ProductID:   productID,
		ProductName: productName,
		Requested:   requested,
		Available:   available,
	})
}

func AlreadyVoided(saleID uuid.UUID) *Error {
	return New(CodeAlreadyVoided, "sale is already voided").WithDetails(map[string]any{
		"sale_id": saleID,
	})
}

func NoOpenSession() *Error {
	return New(CodeNoOpenSession, "no open cash session for user")
}

func SessionAlreadyOpen(sessionID uuid.UUID) *Error {
	err := New(CodeSessionAlreadyOpen, "user already has an open cash session")
	if sessionID != uuid.Nil {
		err.WithDetails(map[string]any{"session_id": sessionID})
	}
	return err
}

func InvalidAmount(field string, amount decimal.Decimal, reason string) *Error {
	return New(CodeInvalidAmount, reason).WithDetails(map[string]any{
		"field":  field,
		"amount": amount.StringFixed(2),
	})
}

func TransactionFailed(err error) *Error {
	return Wrap(CodeTransactionFailed, err, "transaction failed")
}
