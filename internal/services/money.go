package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ToMinorUnits converts a major-unit amount into the currency's smallest
// unit, rounding half up (NGN 150.255 -> 15026 kobo).
func ToMinorUnits(amount decimal.Decimal, unit currency.Unit) int64 {
	scale, _ := currency.Standard.Rounding(unit)
	return amount.Shift(int32(scale)).Round(0).IntPart()
}

// NewReference returns a fresh payment reference with 122 bits of
// randomness from crypto/rand.
func NewReference() string {
	return "hb_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
