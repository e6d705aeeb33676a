package entities

import (
	"github.com/shopspring/decimal"
)

// StockLevel is the on-hand position of one product for one tenant
type StockLevel struct {
	TenantID  string          `json:"tenant_id"`
	ProductID ProductID       `json:"product_id"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Reserved  decimal.Decimal `json:"reserved"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// NewStockLevel creates a stock level with validation
func NewStockLevel(tenantID string, productID ProductID, onHand, unitCost decimal.Decimal) (*StockLevel, error) {
	if tenantID == "" {
		return nil, NewValidationError("tenant_id", "cannot be empty")
	}
	if productID == "" {
		return nil, NewValidationError("product_id", "cannot be empty")
	}
	if onHand.IsNegative() {
		return nil, NewValidationError("on_hand", "must not be negative, got %s", onHand)
	}
	if unitCost.IsNegative() {
		return nil, NewValidationError("unit_cost", "must not be negative, got %s", unitCost)
	}
	return &StockLevel{
		TenantID:  tenantID,
		ProductID: productID,
		OnHand:    onHand,
		Reserved:  decimal.Zero,
		UnitCost:  unitCost,
	}, nil
}

// Available is on-hand minus reserved; it goes negative when reservations exceed stock
func (s *StockLevel) Available() decimal.Decimal {
	return s.OnHand.Sub(s.Reserved)
}
