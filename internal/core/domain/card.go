package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardStatus represents the lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// BalanceScale is the fixed-point scale of card balances: four fractional
// decimal digits, matching the numeric(19,4) column.
const BalanceScale = 4

// CardExpiry is a month/year pair, displayed as MM/YY.
type CardExpiry struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (e CardExpiry) String() string {
	return fmt.Sprintf("%02d/%02d", e.Month, e.Year%100)
}

// Before reports whether the expiry lies strictly before the given
// month/year, i.e. the card is past its validity window.
func (e CardExpiry) Before(month, year int) bool {
	if e.Year != year {
		return e.Year < year
	}
	return e.Month < month
}

// ParseCardExpiry parses an MM/YY string. Two-digit years map into the
// 2000s, matching how expiry dates are embossed on physical cards.
func ParseCardExpiry(s string) (CardExpiry, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return CardExpiry{}, fmt.Errorf("expiry must be MM/YY, got %q", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return CardExpiry{}, fmt.Errorf("invalid expiry month %q", parts[0])
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 0 || year > 99 {
		return CardExpiry{}, fmt.Errorf("invalid expiry year %q", parts[1])
	}
	return CardExpiry{Month: month, Year: 2000 + year}, nil
}

// Card is a balance-bearing account record. The card number is stored only
// as AES-GCM ciphertext plus a peppered SHA-256 digest for uniqueness
// lookup; the plaintext never reaches persistence.
type Card struct {
	ID              uuid.UUID       `json:"id"`
	Version         int64           `json:"version"`
	NumberEncrypted string          `json:"-"`
	NumberHash      string          `json:"-"`
	Expiry          CardExpiry      `json:"expiry"`
	Status          CardStatus      `json:"status"`
	Balance         decimal.Decimal `json:"balance"`
	HolderID        uuid.UUID       `json:"holder_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsActive returns true if the card can participate in transfers.
func (c *Card) IsActive() bool {
	return c.Status == CardStatusActive
}

// OwnedBy returns true if the card belongs to the given user.
func (c *Card) OwnedBy(userID uuid.UUID) bool {
	return c.HolderID == userID
}

// AssignableStatus reports whether s may be written through the
// administrative status update. EXPIRED is reachable only through the
// scheduled expiry sweep.
func AssignableStatus(s CardStatus) bool {
	return s == CardStatusActive || s == CardStatusBlocked
}

// MaskNumber replaces all but the last four characters of a plaintext card
// number with '*'. Short inputs are masked entirely.
func MaskNumber(plain string) string {
	if len(plain) <= 4 {
		return strings.Repeat("*", len(plain))
	}
	return strings.Repeat("*", len(plain)-4) + plain[len(plain)-4:]
}
