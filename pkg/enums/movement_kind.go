package enums

import "fmt"

// MovementKind is the direction of a cash movement.
type MovementKind string

const (
	MovementKindIncome  MovementKind = "income"
	MovementKindExpense MovementKind = "expense"
)

var validMovementKinds = []MovementKind{
	MovementKindIncome,
	MovementKindExpense,
}

// String implements fmt.Stringer.
func (m MovementKind) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementKind.
func (m MovementKind) IsValid() bool {
	for _, candidate := range validMovementKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// Sign returns +1 for income and -1 for expense.
func (m MovementKind) Sign() int64 {
	if m == MovementKindExpense {
		return -1
	}
	return 1
}

// ParseMovementKind converts raw input into a MovementKind.
func ParseMovementKind(value string) (MovementKind, error) {
	for _, candidate := range validMovementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement kind %q", value)
}
