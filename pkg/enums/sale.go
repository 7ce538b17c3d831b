package enums

import "fmt"

// SaleVersionAction names the ledger mutation that produced a sale version.
type SaleVersionAction string

const (
	SaleVersionCreated SaleVersionAction = "created"
	SaleVersionAmended SaleVersionAction = "amended"
	SaleVersionVoided  SaleVersionAction = "voided"
)

var validSaleVersionActions = []SaleVersionAction{
	SaleVersionCreated,
	SaleVersionAmended,
	SaleVersionVoided,
}

func (a SaleVersionAction) String() string {
	return string(a)
}

func (a SaleVersionAction) IsValid() bool {
	for _, candidate := range validSaleVersionActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// SaleStatusFilter narrows sale listings.
type SaleStatusFilter string

const (
	SaleStatusAll    SaleStatusFilter = "all"
	SaleStatusActive SaleStatusFilter = "active"
	SaleStatusVoided SaleStatusFilter = "voided"
)

var validSaleStatusFilters = []SaleStatusFilter{
	SaleStatusAll,
	SaleStatusActive,
	SaleStatusVoided,
}

func (s SaleStatusFilter) IsValid() bool {
	for _, candidate := range validSaleStatusFilters {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatusFilter converts raw input into a SaleStatusFilter. Empty
// input means all.
func ParseSaleStatusFilter(value string) (SaleStatusFilter, error) {
	if value == "" {
		return SaleStatusAll, nil
	}
	for _, candidate := range validSaleStatusFilters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}

// UserStatusFilter narrows user listings.
type UserStatusFilter string

const (
	UserStatusAll      UserStatusFilter = "all"
	UserStatusActive   UserStatusFilter = "active"
	UserStatusInactive UserStatusFilter = "inactive"
)

// ParseUserStatusFilter converts raw input into a UserStatusFilter. Empty
// input means all.
func ParseUserStatusFilter(value string) (UserStatusFilter, error) {
	switch UserStatusFilter(value) {
	case "", UserStatusAll:
		return UserStatusAll, nil
	case UserStatusActive, UserStatusInactive:
		return UserStatusFilter(value), nil
	}
	return "", fmt.Errorf("invalid user status %q", value)
}
