package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationState represents the status of a component claim against inventory
type ReservationState int

const (
	ReservationDraft ReservationState = iota
	ReservationConfirmed
	ReservationAvailable
	ReservationUnavailable
	ReservationDone
	ReservationCancelled
)

// String method for ReservationState enum
func (s ReservationState) String() string {
	switch s {
	case ReservationDraft:
		return "draft"
	case ReservationConfirmed:
		return "confirmed"
	case ReservationAvailable:
		return "available"
	case ReservationUnavailable:
		return "unavailable"
	case ReservationDone:
		return "done"
	case ReservationCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseReservationState parses the textual form produced by String
func ParseReservationState(s string) (ReservationState, error) {
	for st := ReservationDraft; st <= ReservationCancelled; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return ReservationDraft, fmt.Errorf("unknown reservation state %q", s)
}

func (s ReservationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ReservationState) UnmarshalText(text []byte) error {
	parsed, err := ParseReservationState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsHeld reports whether the reservation currently holds quantity in the inventory collaborator
func (s ReservationState) IsHeld() bool {
	return s == ReservationConfirmed || s == ReservationAvailable || s == ReservationUnavailable
}

// MaterialReservation claims a scaled component quantity for an order
type MaterialReservation struct {
	ID            string           `json:"id"`
	MOID          string           `json:"mo_id"`
	ProductID     ProductID        `json:"product_id"`
	ProductUOMQty decimal.Decimal  `json:"product_uom_qty"`
	State         ReservationState `json:"state"`
	DatePlanned   time.Time        `json:"date_planned"`
}

// NewMaterialReservation creates a draft reservation; it becomes confirmed once inventory holds it
func NewMaterialReservation(moID string, productID ProductID, qty decimal.Decimal, datePlanned time.Time) (*MaterialReservation, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("product_uom_qty", "must be positive for %s, got %s", productID, qty)
	}
	return &MaterialReservation{
		ID:            uuid.NewString(),
		MOID:          moID,
		ProductID:     productID,
		ProductUOMQty: qty,
		State:         ReservationDraft,
		DatePlanned:   datePlanned,
	}, nil
}

// MissingMaterial describes one shortfall found by an availability check
type MissingMaterial struct {
	ProductID    ProductID       `json:"product_id"`
	RequiredQty  decimal.Decimal `json:"required_qty"`
	AvailableQty decimal.Decimal `json:"available_qty"`
}

// AvailabilityReport is the result of comparing reservations to on-hand stock
type AvailabilityReport struct {
	Available        bool              `json:"available"`
	MissingMaterials []MissingMaterial `json:"missing_materials"`
}
