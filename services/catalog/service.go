package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/lib/mystore"
)

type Catalog struct {
	productStore mystore.Store[Product]
	serviceStore mystore.Store[Service]
	logger       mylog.Logger
}

func New(productStore mystore.Store[Product], serviceStore mystore.Store[Service]) *Catalog {
	return &Catalog{
		productStore: productStore,
		serviceStore: serviceStore,
		logger:       mylog.New("catalog"),
	}
}

func (s *Catalog) ListProducts(c context.Context) ([]Product, error) {
	products, err := s.productStore.List(c)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error listing products: %s", err))
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].Title < products[j].Title
	})
	return products, nil
}

func (s *Catalog) ListServices(c context.Context) ([]Service, error) {
	services, err := s.serviceStore.List(c)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error listing services: %s", err))
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].Title < services[j].Title
	})
	return services, nil
}

// PriceLines resolves every line against the catalog. Ids that match nothing are
// returned in missing, in request order.
func (s *Catalog) PriceLines(c context.Context, items []LineItem) (lines []PricedLine, missing []string, err error) {
	lines = []PricedLine{}
	missing = []string{}
	for _, item := range items {
		line, found, err := s.priceLine(c, item)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			missing = append(missing, item.ID)
			continue
		}
		lines = append(lines, line)
	}
	return lines, missing, nil
}

func (s *Catalog) priceLine(c context.Context, item LineItem) (PricedLine, bool, error) {
	ref := ParseLineID(item.ID)
	line := PricedLine{
		ID:       item.ID,
		Kind:     ref.Kind,
		DocID:    ref.DocID,
		Variant:  ref.Variant,
		Quantity: item.Quantity,
	}

	if ref.Kind == LineKindProduct {
		product, found, err := s.productStore.Get(c, ref.DocID)
		if err != nil {
			return PricedLine{}, false, myerrors.NewInternalError(fmt.Errorf("error fetching product %s: %s", ref.DocID, err))
		}
		if !found {
			return PricedLine{}, false, nil
		}
		line.Title = product.Title
		line.UnitPriceCents = product.PriceCents
		line.Currency = currencyOrDefault(product.Currency)
		return line, true, nil
	}

	service, found, err := s.serviceStore.Get(c, ref.DocID)
	if err != nil {
		return PricedLine{}, false, myerrors.NewInternalError(fmt.Errorf("error fetching service %s: %s", ref.DocID, err))
	}
	if !found {
		return PricedLine{}, false, nil
	}
	line.Currency = currencyOrDefault(service.Currency)

	if ref.Kind == LineKindService {
		if ref.Variant != "" && ref.Variant != defaultVariant {
			return PricedLine{}, false, nil
		}
		line.Title = service.Title
		line.UnitPriceCents = service.PriceCents
		return line, true, nil
	}

	pkg, found := service.findPackage(ref.Variant)
	if !found {
		return PricedLine{}, false, nil
	}
	line.Title = fmt.Sprintf("%s - %s", service.Title, pkg.Title)
	line.UnitPriceCents = pkg.PriceCents
	return line, true, nil
}

// CheckAvailability returns the first product whose tracked stock cannot cover the
// requested quantity, summed over all lines of that product.
func (s *Catalog) CheckAvailability(c context.Context, lines []PricedLine) (*Shortfall, error) {
	requested, order := productQuantities(lines)
	for _, productID := range order {
		product, found, err := s.productStore.Get(c, productID)
		if err != nil {
			return nil, myerrors.NewInternalError(fmt.Errorf("error fetching product %s: %s", productID, err))
		}
		if !found {
			return &Shortfall{ItemID: productID, Requested: requested[productID], Available: 0}, nil
		}
		if product.TrackStock && product.Stock < requested[productID] {
			return &Shortfall{ItemID: productID, Requested: requested[productID], Available: product.Stock}, nil
		}
	}
	return nil, nil
}

// CommitInventory decrements tracked stock. It joins a transaction found on c so
// that it commits together with the order that paid for it.
func (s *Catalog) CommitInventory(c context.Context, lines []PricedLine) error {
	requested, order := productQuantities(lines)
	return s.productStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		for _, productID := range order {
			product, found, err := s.productStore.Get(c, productID)
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error fetching product %s: %s", productID, err))
			}
			if !found || !product.TrackStock {
				continue
			}

			remaining := product.Stock - requested[productID]
			if remaining < 0 {
				s.logger.Log(c, productID, mylog.SeverityWarn, "Stock of product %s short by %d at inventory commit", productID, -remaining)
				remaining = 0
			}
			product.Stock = remaining

			err = s.productStore.Put(c, productID, product)
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error storing product %s: %s", productID, err))
			}
		}
		return nil
	})
}

func productQuantities(lines []PricedLine) (map[string]int, []string) {
	requested := map[string]int{}
	order := []string{}
	for _, l := range lines {
		if l.Kind != LineKindProduct {
			continue
		}
		if _, seen := requested[l.DocID]; !seen {
			order = append(order, l.DocID)
		}
		requested[l.DocID] += l.Quantity
	}
	return requested, order
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return DefaultCurrency
	}
	return currency
}

type seedFile struct {
	Products []seedProduct `json:"products"`
	Services []seedService `json:"services"`
}

type seedProduct struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Slug       string          `json:"slug"`
	Brand      string          `json:"brand"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	CoverImage string          `json:"coverImage"`
	Stock      *int            `json:"stock"`
}

type seedService struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	DurationMinutes int             `json:"durationMinutes"`
	Packages        []struct {
		Variant  string          `json:"variant"`
		Title    string          `json:"title"`
		Sessions int             `json:"sessions"`
		Price    decimal.Decimal `json:"price"`
	} `json:"packages"`
}

// Seed loads products and services from JSON. A product without "stock" is not tracked.
func (s *Catalog) Seed(c context.Context, reader io.Reader) error {
	seed := seedFile{}
	err := json.NewDecoder(reader).Decode(&seed)
	if err != nil {
		return fmt.Errorf("error parsing catalog seed: %s", err)
	}

	for _, p := range seed.Products {
		product := Product{
			ID:         p.ID,
			Title:      p.Title,
			Slug:       p.Slug,
			Brand:      p.Brand,
			PriceCents: ToCents(p.Price),
			Currency:   currencyOrDefault(p.Currency),
			CoverImage: p.CoverImage,
		}
		if p.Stock != nil {
			product.TrackStock = true
			product.Stock = *p.Stock
		}
		err = s.productStore.Put(c, product.ID, product)
		if err != nil {
			return fmt.Errorf("error storing product %s: %s", product.ID, err)
		}
	}

	for _, svc := range seed.Services {
		service := Service{
			ID:              svc.ID,
			Title:           svc.Title,
			Slug:            svc.Slug,
			PriceCents:      ToCents(svc.Price),
			Currency:        currencyOrDefault(svc.Currency),
			DurationMinutes: svc.DurationMinutes,
			Packages:        []Package{},
		}
		for _, p := range svc.Packages {
			service.Packages = append(service.Packages, Package{
				Variant:    p.Variant,
				Title:      p.Title,
				Sessions:   p.Sessions,
				PriceCents: ToCents(p.Price),
			})
		}
		err = s.serviceStore.Put(c, service.ID, service)
		if err != nil {
			return fmt.Errorf("error storing service %s: %s", service.ID, err)
		}
	}

	s.logger.Log(c, "", mylog.SeverityInfo, "Seeded %d products and %d services", len(seed.Products), len(seed.Services))

	return nil
}
