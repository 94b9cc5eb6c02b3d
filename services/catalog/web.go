package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/myhttp"
	"github.com/MarcGrol/dobmilano/lib/mylog"
)

type webService struct {
	logger  mylog.Logger
	catalog *Catalog
}

func NewWebService(catalog *Catalog) *webService {
	return &webService{
		logger:  mylog.New("catalog"),
		catalog: catalog,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/api/shop/products", s.listProductsPage()).Methods("GET")
	router.HandleFunc("/api/shop/products/{productID}", s.getProductPage()).Methods("GET")
	router.HandleFunc("/api/shop/services", s.listServicesPage()).Methods("GET")
}

type productResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Slug       string  `json:"slug"`
	Brand      string  `json:"brand,omitempty"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	CoverImage *string `json:"coverImage"`
	InStock    bool    `json:"inStock"`
}

type packageResponse struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Sessions int     `json:"sessions"`
	Price    float64 `json:"price"`
}

type serviceResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Slug            string            `json:"slug"`
	Price           float64           `json:"price"`
	Currency        string            `json:"currency"`
	DurationMinutes int               `json:"durationMinutes"`
	Packages        []packageResponse `json:"packages"`
}

func toProductResponse(p Product) productResponse {
	var cover *string
	if p.CoverImage != "" {
		cover = &p.CoverImage
	}
	return productResponse{
		ID:         p.ID,
		Title:      p.Title,
		Slug:       p.Slug,
		Brand:      p.Brand,
		Price:      p.Price().InexactFloat64(),
		Currency:   currencyOrDefault(p.Currency),
		CoverImage: cover,
		InStock:    !p.TrackStock || p.Stock > 0,
	}
}

func toServiceResponse(svc Service) serviceResponse {
	resp := serviceResponse{
		ID:              svc.ID,
		Title:           svc.Title,
		Slug:            svc.Slug,
		Price:           FromCents(svc.PriceCents).InexactFloat64(),
		Currency:        currencyOrDefault(svc.Currency),
		DurationMinutes: svc.DurationMinutes,
		Packages:        []packageResponse{},
	}
	for _, p := range svc.Packages {
		resp.Packages = append(resp.Packages, packageResponse{
			ID:       LineRef{Kind: LineKindPackage, DocID: svc.ID, Variant: p.Variant}.String(),
			Title:    p.Title,
			Sessions: p.Sessions,
			Price:    FromCents(p.PriceCents).InexactFloat64(),
		})
	}
	return resp
}

func (s *webService) listProductsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		products, err := s.catalog.ListProducts(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		resp := []productResponse{}
		for _, p := range products {
			resp = append(resp, toProductResponse(p))
		}
		errorWriter.Write(c, w, http.StatusOK, resp)
	}
}

func (s *webService) getProductPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		productID := mux.Vars(r)["productID"]
		product, found, err := s.catalog.productStore.Get(c, productID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInternalError(fmt.Errorf("error fetching product %s: %s", productID, err)))
			return
		}
		if !found {
			errorWriter.WriteError(c, w, 2, myerrors.NewNotFoundError(fmt.Errorf("Product not found.")))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, toProductResponse(product))
	}
}

func (s *webService) listServicesPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		services, err := s.catalog.ListServices(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		resp := []serviceResponse{}
		for _, svc := range services {
			resp = append(resp, toServiceResponse(svc))
		}
		errorWriter.Write(c, w, http.StatusOK, resp)
	}
}
