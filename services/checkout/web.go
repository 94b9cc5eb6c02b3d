package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/myhttp"
	"github.com/MarcGrol/dobmilano/lib/mylog"
)

const maxWebhookBodySize = 65536

type webService struct {
	logger  mylog.Logger
	service *Service
}

func NewWebService(service *Service) *webService {
	return &webService{
		logger:  mylog.New("checkout"),
		service: service,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/api/shop/checkout", s.submitPage()).Methods("POST")
	router.HandleFunc("/api/shop/checkout/confirm-payment", s.confirmPage()).Methods("POST")
	router.HandleFunc("/api/shop/checkout/step", s.stepPage()).Methods("POST")
	router.HandleFunc("/api/shop/stripe/webhook", s.webhookPage()).Methods("POST")
}

type submitResponse struct {
	OrderNumber               string `json:"orderNumber"`
	OrderID                   int64  `json:"orderId"`
	PaymentIntentClientSecret string `json:"paymentIntentClientSecret,omitempty"`
	StripePublishableKey      string `json:"stripePublishableKey,omitempty"`
	CheckoutMode              string `json:"checkoutMode"`
}

func (s *webService) submitPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := SubmitRequest{}
		err := myhttp.DecodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		result, err := s.service.Submit(c, req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, submitResponse{
			OrderNumber:               result.OrderNumber,
			OrderID:                   result.OrderID,
			PaymentIntentClientSecret: result.PaymentIntentClientSecret,
			StripePublishableKey:      result.StripePublishableKey,
			CheckoutMode:              result.CheckoutMode,
		})
	}
}

type confirmRequest struct {
	OrderID         any    `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
	Locale          string `json:"locale"`
}

// parseOrderID accepts a positive integral number or its decimal string form.
func parseOrderID(raw any) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v <= 0 || v > 1<<53 {
			return 0, false
		}
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

func (s *webService) confirmPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := confirmRequest{}
		err := myhttp.DecodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		orderID, ok := parseOrderID(req.OrderID)
		paymentIntentID := strings.TrimSpace(req.PaymentIntentID)
		if !ok || paymentIntentID == "" {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(errors.New(message(req.Locale, keyInvalidConfirmation))))
			return
		}

		err = s.service.Confirm(c, req.Locale, orderID, paymentIntentID)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{OK: true})
	}
}

type stepRequest struct {
	CurrentStep Step        `json:"currentStep"`
	Intent      Intent      `json:"intent"`
	Context     StepContext `json:"context"`
	Locale      string      `json:"locale"`
}

type stepResponse struct {
	NextStep Step    `json:"nextStep"`
	Error    *string `json:"error"`
	Message  *string `json:"message"`
}

func (s *webService) stepPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := stepRequest{}
		err := myhttp.DecodeJSON(r, &req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		if !req.CurrentStep.valid() || !req.Intent.valid() {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(errors.New(message(req.Locale, keyInvalidStep))))
			return
		}

		transition := ResolveStepTransition(req.CurrentStep, req.Intent, req.Context)

		resp := stepResponse{NextStep: transition.NextStep}
		if transition.Error != "" {
			key := string(transition.Error)
			msg := message(req.Locale, transition.Error)
			resp.Error = &key
			resp.Message = &msg
		}

		errorWriter.Write(c, w, http.StatusOK, resp)
	}
}

func (s *webService) webhookPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error reading webhook body: %s", err)))
			return
		}

		err = s.service.HandleWebhook(c, payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{OK: true})
	}
}
