package shipping

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
	"github.com/MarcGrol/dobmilano/lib/myhttp"
	"github.com/MarcGrol/dobmilano/lib/mylog"
)

type webService struct {
	logger  mylog.Logger
	gateway *Gateway
}

func NewWebService(gateway *Gateway) *webService {
	return &webService{
		logger:  mylog.New("shipping"),
		gateway: gateway,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/api/shop/shipping-quote", s.quotePage()).Methods("POST")
}

type quoteRequest struct {
	Address    string          `json:"address"`
	City       string          `json:"city"`
	Province   string          `json:"province"`
	PostalCode string          `json:"postalCode"`
	Country    string          `json:"country"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type methodResponse struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type quoteResponse struct {
	OK           bool             `json:"ok"`
	FreeShipping bool             `json:"freeShipping"`
	Amount       *float64         `json:"amount"`
	Currency     string           `json:"currency"`
	MethodName   string           `json:"methodName"`
	Methods      []methodResponse `json:"methods"`
}

func toQuoteResponse(q Quote) quoteResponse {
	resp := quoteResponse{
		OK:           true,
		FreeShipping: q.FreeShipping,
		Currency:     q.Currency,
		MethodName:   q.MethodName,
		Methods:      []methodResponse{},
	}
	if len(q.Methods) > 0 {
		amount := q.Amount.InexactFloat64()
		resp.Amount = &amount
	}
	for _, m := range q.Methods {
		resp.Methods = append(resp.Methods, methodResponse{ID: m.ID, Name: m.Name, Amount: m.Amount.InexactFloat64()})
	}
	return resp
}

func (s *webService) quotePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := quoteRequest{}
		err := myhttp.DecodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		quote, err := s.gateway.Quote(c, Destination{
			Address:    req.Address,
			City:       req.City,
			Province:   req.Province,
			PostalCode: req.PostalCode,
			Country:    req.Country,
		}, req.Subtotal)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, toQuoteResponse(quote))
	}
}
