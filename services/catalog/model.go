package catalog

import (
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "EUR"

// Product is a physical item that can be shipped or picked up.
// Stock is only enforced when TrackStock is set.
type Product struct {
	ID         string
	Title      string
	Slug       string
	Brand      string
	PriceCents int64
	Currency   string
	CoverImage string `datastore:",noindex"`
	TrackStock bool
	Stock      int
}

func (p Product) Price() decimal.Decimal {
	return FromCents(p.PriceCents)
}

// Service is a bookable treatment. Its own price applies to the "default" variant,
// multi-session packages carry their own price.
type Service struct {
	ID              string
	Title           string
	Slug            string
	PriceCents      int64
	Currency        string
	DurationMinutes int
	Packages        []Package
}

type Package struct {
	Variant    string
	Title      string
	Sessions   int
	PriceCents int64
}

func (s Service) findPackage(variant string) (Package, bool) {
	for _, p := range s.Packages {
		if p.Variant == variant {
			return p, true
		}
	}
	return Package{}, false
}

type LineKind string

const (
	LineKindProduct LineKind = "product"
	LineKindService LineKind = "service"
	LineKindPackage LineKind = "package"
)

// LineRef is the typed form of a cart line id.
type LineRef struct {
	Kind    LineKind
	DocID   string
	Variant string
}

// LineItem is a requested line: an id in wire format and a positive quantity.
type LineItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// PricedLine is a line resolved against the catalog with the server side price.
type PricedLine struct {
	ID             string
	Kind           LineKind
	DocID          string
	Variant        string
	Title          string
	Quantity       int
	UnitPriceCents int64
	Currency       string
}

func (l PricedLine) TotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

type Shortfall struct {
	ItemID    string
	Requested int
	Available int
}

func SubtotalCents(lines []PricedLine) int64 {
	total := int64(0)
	for _, l := range lines {
		total += l.TotalCents()
	}
	return total
}

func ToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
