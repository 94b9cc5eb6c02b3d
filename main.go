package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MarcGrol/dobmilano/lib/myconfig"
	"github.com/MarcGrol/dobmilano/lib/myhttp"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/lib/mymetrics"
	"github.com/MarcGrol/dobmilano/lib/mypublisher"
	"github.com/MarcGrol/dobmilano/lib/mypubsub"
	"github.com/MarcGrol/dobmilano/lib/myqueue"
	"github.com/MarcGrol/dobmilano/lib/myratelimit"
	"github.com/MarcGrol/dobmilano/lib/mystore"
	"github.com/MarcGrol/dobmilano/lib/mytime"
	"github.com/MarcGrol/dobmilano/lib/myuuid"
	"github.com/MarcGrol/dobmilano/services/cart"
	"github.com/MarcGrol/dobmilano/services/catalog"
	"github.com/MarcGrol/dobmilano/services/checkout"
	"github.com/MarcGrol/dobmilano/services/checkoutevents"
	"github.com/MarcGrol/dobmilano/services/leads"
	"github.com/MarcGrol/dobmilano/services/orders"
	"github.com/MarcGrol/dobmilano/services/shipping"
	"github.com/MarcGrol/dobmilano/services/sitesettings"
	"github.com/MarcGrol/dobmilano/services/warmup"
)

const outboxFlushInterval = 30 * time.Second

// rateLimitedPaths take anonymous writes that are cheap to abuse.
var rateLimitedPaths = map[string]bool{
	"/api/consultation-leads":            true,
	"/api/shop/checkout":                 true,
	"/api/shop/checkout/confirm-payment": true,
}

func main() {
	c, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := myconfig.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %s", err)
	}

	router, cleanup := createRouter(c, cfg)
	defer cleanup()

	startWebServerBlocking(c, cfg, router)
}

func createRouter(c context.Context, cfg *myconfig.Config) (*mux.Router, func()) {
	logger := mylog.New("main")
	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	must := func(storeCleanup func(), err error, what string) {
		if err != nil {
			cleanup()
			log.Fatalf("Error creating %s: %s", what, err)
		}
		if storeCleanup != nil {
			cleanups = append(cleanups, storeCleanup)
		}
	}

	router := mux.NewRouter()
	router.Use(mymetrics.Middleware)
	router.Use(myhttp.ResolveClientIP(cfg.TrustedProxies))
	router.Use(myhttp.AccessLog(logger))
	limiter := myratelimit.New(nower, cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.MaxEntries)
	router.Use(limitPaths(limiter.Middleware(logger)))

	router.Handle("/metrics", mymetrics.Handler()).Methods("GET")

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	must(pubsubCleanup, err, "pubsub")

	queue, queueCleanup, err := myqueue.New(c)
	must(queueCleanup, err, "task queue")

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	must(publisherCleanup, err, "publisher")
	publisher.RegisterEndpoints(c, router)
	for _, topic := range []string{checkoutevents.TopicName, cart.TopicName, leads.TopicName} {
		err = publisher.CreateTopic(c, topic)
		if err != nil {
			cleanup()
			log.Fatalf("Error creating topic %s: %s", topic, err)
		}
	}

	productStore, productCleanup, err := mystore.New[catalog.Product](c)
	must(productCleanup, err, "product store")
	serviceStore, serviceCleanup, err := mystore.New[catalog.Service](c)
	must(serviceCleanup, err, "service store")
	productCatalog := catalog.New(productStore, serviceStore)
	if cfg.CatalogSeedFile != "" {
		err = seedCatalog(c, productCatalog, cfg.CatalogSeedFile)
		if err != nil {
			cleanup()
			log.Fatalf("Error seeding catalog from %s: %s", cfg.CatalogSeedFile, err)
		}
	}
	catalog.NewWebService(productCatalog).RegisterEndpoints(c, router)

	settingsStore, settingsCleanup, err := mystore.New[sitesettings.SiteSettings](c)
	must(settingsCleanup, err, "site-settings store")
	resolver := sitesettings.NewResolver(settingsStore, cfg.Integrations)

	gateway := shipping.NewGateway(resolver, shipping.NewDefaultCarrierPool())
	shipping.NewWebService(gateway).RegisterEndpoints(c, router)

	cartStore, cartCleanup, err := mystore.New[cart.Cart](c)
	must(cartCleanup, err, "cart store")
	carts := cart.NewStore(cartStore, publisher, nower)
	cart.NewWebService(carts).RegisterEndpoints(c, router)

	orderRepo, ordersCleanup, err := orders.NewRepository(c, nower, uuider)
	must(ordersCleanup, err, "order repository")

	checkoutService := checkout.NewService(productCatalog, orderRepo, resolver, gateway, carts, checkout.NewPayer(), publisher)
	checkout.NewWebService(checkoutService).RegisterEndpoints(c, router)

	leadStore, leadCleanup, err := mystore.New[leads.Lead](c)
	must(leadCleanup, err, "lead store")
	leads.NewWebService(leads.NewService(leadStore, publisher, nower, uuider)).RegisterEndpoints(c, router)

	warmup.NewService(resolver, publisher).RegisterEndpoints(c, router)

	go flushOutboxPeriodically(c, publisher, logger)

	return router, cleanup
}

func seedCatalog(c context.Context, productCatalog *catalog.Catalog, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return productCatalog.Seed(c, f)
}

func limitPaths(limit func(http.Handler) http.Handler) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rateLimitedPaths[r.URL.Path] {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// flushOutboxPeriodically publishes events whose trigger task got lost.
func flushOutboxPeriodically(c context.Context, publisher *mypublisher.TransactionalPublisher, logger mylog.Logger) {
	ticker := time.NewTicker(outboxFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			flushed, err := publisher.Flush(c)
			if err != nil {
				logger.Log(c, "", mylog.SeverityError, "Error flushing outbox: %s", err)
				continue
			}
			if flushed > 0 {
				logger.Log(c, "", mylog.SeverityInfo, "Flushed %d pending events", flushed)
			}
		}
	}
}

func startWebServerBlocking(c context.Context, cfg *myconfig.Config, router *mux.Router) {
	handler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	})(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           otelhttp.NewHandler(handler, "dobmilano"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-c.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			log.Printf("Error shutting down webserver: %s", err)
		}
	}()

	log.Printf("Starting webserver on port %s (try http://localhost:%s)", cfg.Port, cfg.Port)
	err := srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatalf("Error starting webserver on port %s: %s", cfg.Port, err)
	}
}
