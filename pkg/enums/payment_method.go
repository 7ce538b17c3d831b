package enums

import "fmt"

// PaymentMethod describes how a sale was settled at the counter.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "EF"
	PaymentMethodCredit   PaymentMethod = "TC"
	PaymentMethodDebit    PaymentMethod = "TD"
	PaymentMethodTransfer PaymentMethod = "TR"
	PaymentMethodMixed    PaymentMethod = "OT"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodCredit,
	PaymentMethodDebit,
	PaymentMethodTransfer,
	PaymentMethodMixed,
}

var paymentMethodLabels = map[PaymentMethod]string{
	PaymentMethodCash:     "Efectivo",
	PaymentMethodCredit:   "Tarjeta de Crédito",
	PaymentMethodDebit:    "Tarjeta de Débito",
	PaymentMethodTransfer: "Transferencia",
	PaymentMethodMixed:    "Pago Mixto",
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// Label is the human readable name printed on tickets and reports.
func (p PaymentMethod) Label() string {
	if label, ok := paymentMethodLabels[p]; ok {
		return label
	}
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresReference is true for card and transfer payments.
func (p PaymentMethod) RequiresReference() bool {
	return p == PaymentMethodCredit || p == PaymentMethodDebit || p == PaymentMethodTransfer
}

// PaymentMethods returns every known method in display order.
func PaymentMethods() []PaymentMethod {
	out := make([]PaymentMethod, len(validPaymentMethods))
	copy(out, validPaymentMethods)
	return out
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
