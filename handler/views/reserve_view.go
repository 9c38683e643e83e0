package views

import (
	"lever/core"

	"github.com/shopspring/decimal"
)

// Reserve reserve view
type Reserve struct {
	core.Reserve
	SupplyAPY decimal.Decimal `json:"supply_apy"`
	BorrowAPY decimal.Decimal `json:"borrow_apy"`
}
