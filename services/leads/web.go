package leads

import (
	"context"
	"fmt"
	"net/http"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/myhttp"
	"github.com/MarcGrol/dobmilano/lib/mylog"
)

type webService struct {
	logger  mylog.Logger
	service *Service
}

func NewWebService(service *Service) *webService {
	return &webService{
		logger:  mylog.New("leads"),
		service: service,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/api/consultation-leads", s.capturePage()).Methods("POST")
}

// leadRequest is posted as JSON by the site and as a plain form by the no-js fallback.
type leadRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Phone   string `json:"phone" form:"phone"`
	Service string `json:"service" form:"service"`
	Message string `json:"message" form:"message"`
	Locale  string `json:"locale" form:"locale"`
	Consent bool   `json:"consent" form:"consent"`
}

func decodeLeadRequest(r *http.Request) (leadRequest, error) {
	req := leadRequest{}
	if !myhttp.IsFormRequest(r) {
		err := myhttp.DecodeJSON(r, &req)
		return req, err
	}

	err := r.ParseForm()
	if err != nil {
		return req, myerrors.NewInvalidInputError(fmt.Errorf("error parsing form: %s", err))
	}
	err = formcodec.NewDecoder().Decode(&req, r.PostForm)
	if err != nil {
		return req, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}
	return req, nil
}

func (s *webService) capturePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req, err := decodeLeadRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		_, err = s.service.Capture(c, Lead{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Service:  req.Service,
			Message:  req.Message,
			Locale:   req.Locale,
			Consent:  req.Consent,
			ClientIP: myhttp.ClientIP(r),
		})
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, myhttp.SuccessResponse{OK: true})
	}
}
