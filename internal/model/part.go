package model

import "github.com/shopspring/decimal"

// LocationShop is the quantity-map key of the shop. Every other key in a
// part's quantity map is a truck id.
const LocationShop = "shop"

// Season классифицирует деталь по сезону использования.
type Season string

const (
	SeasonHeating   Season = "heating"
	SeasonCooling   Season = "cooling"
	SeasonYearRound Season = "year-round"
)

// ParseSeason maps a raw sheet cell onto a Season. Anything unknown or empty
// falls back to year-round, matching the remote sheet's leniency.
func ParseSeason(s string) Season {
	switch Season(s) {
	case SeasonHeating, SeasonCooling, SeasonYearRound:
		return Season(s)
	default:
		return SeasonYearRound
	}
}

// ParsePrice parses a decimal price string ("12.50").
func ParsePrice(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// Part — one inventory position. Quantities and Minimums are keyed by
// location (LocationShop plus one entry per known truck id).
type Part struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CategoryID   string          `json:"category"`
	Barcode      string          `json:"barcode,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	Season       Season          `json:"season"`
	Quantities   map[string]int  `json:"quantities"`
	Minimums     map[string]int  `json:"minimums"`
	Price        decimal.Decimal `json:"price"`
	PurchaseLink string          `json:"purchaseLink,omitempty"`
}

// Qty returns the quantity at a location; a missing entry counts as 0, never
// as absent.
func (p Part) Qty(location string) int {
	return p.Quantities[location]
}

// Min returns the configured minimum for a location (0 when not set).
func (p Part) Min(location string) int {
	return p.Minimums[location]
}

// Clone возвращает глубокую копию, чтобы зеркало не отдавало свои карты.
func (p Part) Clone() Part {
	q := make(map[string]int, len(p.Quantities))
	for k, v := range p.Quantities {
		q[k] = v
	}
	m := make(map[string]int, len(p.Minimums))
	for k, v := range p.Minimums {
		m[k] = v
	}
	p.Quantities = q
	p.Minimums = m
	return p
}

// PartStatic is the slow-changing subset of Part that the tiered cache is
// allowed to hold. Quantity-bearing fields are always fetched fresh.
type PartStatic struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CategoryID   string          `json:"category"`
	Barcode      string          `json:"barcode,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	Season       Season          `json:"season"`
	Price        decimal.Decimal `json:"price"`
	PurchaseLink string          `json:"purchaseLink,omitempty"`
}

// Static extracts the cacheable subset.
func (p Part) Static() PartStatic {
	return PartStatic{
		ID:           p.ID,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		Barcode:      p.Barcode,
		ImageURL:     p.ImageURL,
		Season:       p.Season,
		Price:        p.Price,
		PurchaseLink: p.PurchaseLink,
	}
}
