package warmup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
	"github.com/MarcGrol/dobmilano/lib/myhttp"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/services/sitesettings"
)

type IntegrationsResolver interface {
	Integrations(c context.Context) (sitesettings.Integrations, error)
}

type OutboxFlusher interface {
	Flush(c context.Context) (int, error)
}

type webService struct {
	logger   mylog.Logger
	settings IntegrationsResolver
	outbox   OutboxFlusher
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(settings IntegrationsResolver, outbox OutboxFlusher) *webService {
	return &webService{
		logger:   mylog.New("warmup"),
		settings: settings,
		outbox:   outbox,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
	router.HandleFunc("/healthz", s.healthPage()).Methods("GET")
}

// warmupPage loads the site settings and pushes events a previous instance left in the outbox.
func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		integrations, err := s.settings.Integrations(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		if !integrations.PaymentsConfigured() {
			s.logger.Log(c, "", mylog.SeverityWarn, "Payments are not configured")
		}
		if !integrations.ShippingConfigured() {
			s.logger.Log(c, "", mylog.SeverityWarn, "Shipping quotes are not configured")
		}

		flushed, err := s.outbox.Flush(c)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			OK:      true,
			Message: fmt.Sprintf("Successfully processed warmup request, published %d pending events", flushed),
		})
	}
}

func (s *webService) healthPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		myhttp.NewWriter(s.logger).Write(c, w, http.StatusOK, myhttp.SuccessResponse{OK: true})
	}
}
