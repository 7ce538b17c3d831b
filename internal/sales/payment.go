package sales

import (
	"strings"

	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultMinReferenceChars is the shortest accepted card or transfer reference.
const DefaultMinReferenceChars = 4

// PaymentInput is what the counter collected for a sale.
type PaymentInput struct {
	Method enums.PaymentMethod
	// Tendered is the cash handed over for EF sales.
	Tendered decimal.NullDecimal
	// Reference is the card voucher or transfer folio. It is checked, never stored.
	Reference  string
	MixedCash  decimal.NullDecimal
	MixedOther decimal.NullDecimal
}

// Settlement is the validated outcome of a payment against a total.
type Settlement struct {
	Method      enums.PaymentMethod
	CashPortion decimal.Decimal
	Change      decimal.Decimal
	MixedCash   decimal.NullDecimal
	MixedOther  decimal.NullDecimal
}

// Settle checks the payment covers total and works out the cash that lands in
// the drawer.
func Settle(input PaymentInput, total decimal.Decimal, minReferenceChars int) (Settlement, error) {
	if minReferenceChars <= 0 {
		minReferenceChars = DefaultMinReferenceChars
	}
	out := Settlement{Method: input.Method, CashPortion: decimal.Zero, Change: decimal.Zero}

	switch input.Method {
	case enums.PaymentMethodCash:
		tendered := total
		if input.Tendered.Valid {
			tendered = input.Tendered.Decimal
		}
		if tendered.IsNegative() {
			return out, pkgerrors.InvalidAmount("tendered", tendered, "tendered amount must not be negative")
		}
		if tendered.LessThan(total) {
			return out, pkgerrors.InvalidAmount("tendered", tendered, "tendered amount does not cover the total")
		}
		out.CashPortion = total
		out.Change = tendered.Sub(total).Round(2)
	case enums.PaymentMethodCredit, enums.PaymentMethodDebit, enums.PaymentMethodTransfer:
		if len([]rune(strings.TrimSpace(input.Reference))) < minReferenceChars {
			return out, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required").WithDetails(map[string]any{
				"field":     "reference",
				"min_chars": minReferenceChars,
			})
		}
	case enums.PaymentMethodMixed:
		if !input.MixedCash.Valid || !input.MixedOther.Valid {
			return out, pkgerrors.New(pkgerrors.CodeValidation, "mixed payments require cash and other amounts").WithDetails(map[string]any{
				"fields": []string{"mixed_cash", "mixed_other"},
			})
		}
		cash := input.MixedCash.Decimal.Round(2)
		other := input.MixedOther.Decimal.Round(2)
		if cash.IsNegative() {
			return out, pkgerrors.InvalidAmount("mixed_cash", cash, "mixed cash must not be negative")
		}
		if other.IsNegative() {
			return out, pkgerrors.InvalidAmount("mixed_other", other, "mixed other must not be negative")
		}
		paid := cash.Add(other)
		if paid.LessThan(total) {
			return out, pkgerrors.InvalidAmount("mixed_total", paid, "mixed amounts do not cover the total")
		}
		out.MixedCash = decimal.NewNullDecimal(cash)
		out.MixedOther = decimal.NewNullDecimal(other)
		out.CashPortion = decimal.Min(cash, total)
		out.Change = paid.Sub(total)
	default:
		return out, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").WithDetails(map[string]any{
			"payment_method": string(input.Method),
		})
	}
	return out, nil
}
