// README: Entry point; loads config, wires pricing, fleet and quote services, serves HTTP until signalled.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"carhire/internal/config"
	httptransport "carhire/internal/http"
	"carhire/internal/infra"
	"carhire/internal/modules/fleet"
	"carhire/internal/modules/pricing"
	"carhire/internal/modules/quote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("CARHIRE_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(ctx, cfg.Redis.Addr)
	defer redisClient.Close()

	pricingStore := pricing.NewStore(dbPool)
	pricingCache := pricing.NewCache(redisClient, cfg.Pricing.CacheTTL)
	pricingSvc := pricing.NewService(pricingStore, pricingCache)

	fleetStore := fleet.NewStore(dbPool)
	resolver := fleet.NewResolver(fleetStore, cfg.Quote.AvailabilityConcurrency)

	quoteStore := quote.NewStore(dbPool)
	quoteSvc := quote.NewService(quoteStore, pricingSvc, resolver, quote.Options{
		Concurrency:         cfg.Quote.AvailabilityConcurrency,
		AvailabilityTimeout: cfg.Quote.AvailabilityTimeout,
		Currency:            cfg.Quote.Currency,
	})

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Quote:        quoteSvc,
		Pricing:      pricingSvc,
		Availability: resolver,
		Verifier:     verifier,
		QuoteTimeout: cfg.Quote.Timeout,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("carhire-api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
