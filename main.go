package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"donation-checkout-api/config"
	"donation-checkout-api/database"
	"donation-checkout-api/handlers"
	"donation-checkout-api/middleware"
	"donation-checkout-api/queue"
	"donation-checkout-api/services/auth"
	"donation-checkout-api/services/email"
	"donation-checkout-api/services/payment"
	"donation-checkout-api/services/payment/moneris"
	"donation-checkout-api/worker"
)

func main() {
	// Configurar logging com timestamp preciso
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.Lmicroseconds | log.LUTC)
	log.Printf("Server starting with %d CPUs available", runtime.NumCPU())

	cfg := config.Load()

	// Conectar ao banco de dados com retry
	var db *database.Connection
	var err error
	for retries := 0; retries < 5; retries++ {
		db, err = database.NewConnection(cfg.Database)
		if err == nil {
			break
		}
		retryDelay := time.Duration(retries+1) * time.Second
		log.Printf("Failed to connect to database (attempt %d/5): %v. Retrying in %v...",
			retries+1, err, retryDelay)
		time.Sleep(retryDelay)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	log.Println("Successfully connected to database")

	jobQueue, err := queue.NewQueue(cfg.Redis.URL, cfg.Redis.QueueName)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Successfully connected to Redis")

	registry := buildRegistry(cfg, db)
	if len(registry.IDs()) == 0 {
		log.Printf("Warning: no recurring gateway is active, every checkout will be rejected")
	}

	emailService := email.NewSMTPService(cfg.SMTP)

	workerConcurrency := cfg.Redis.WorkerConcurrency
	if workerConcurrency < 1 {
		workerConcurrency = 1
	} else if workerConcurrency > 8 {
		workerConcurrency = 8 // Limitar para evitar sobrecarga
	}
	receiptWorker := worker.NewWorker(jobQueue, db, emailService)
	receiptWorker.Start(workerConcurrency)
	log.Printf("Started receipt worker with %d threads", workerConcurrency)

	if cfg.Session.Secret == "" {
		log.Fatalf("SESSION_SECRET must be set")
	}
	store := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.Session.Domain,
		MaxAge:   cfg.Session.MaxAge,
		Secure:   cfg.Session.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("JWT_SECRET must be set")
	}
	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	donationHandler := handlers.NewDonationHandler(registry, db, jobQueue, db, store, handlers.SiteURLs{
		SuccessURL:      cfg.Site.SuccessURL,
		CheckoutURL:     cfg.Site.CheckoutURL,
		DefaultCurrency: cfg.Site.DefaultCurrency,
	})
	adminHandler := handlers.NewAdminHandler(db, db, jobQueue)
	internalHandler := handlers.NewInternalHandler(jwtService, cfg.Auth.InternalSecret)
	healthHandler := handlers.NewHealthHandler(
		handlers.PingFunc(func(ctx context.Context) error { return db.GetDB().PingContext(ctx) }),
		jobQueue,
		registry.IDs,
	)

	rateLimiter := middleware.NewRateLimiter(jobQueue.Client())

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigin))
	router.Use(middleware.SecurityHeadersMiddleware)
	router.Use(rateLimiter.RateLimitMiddleware())

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/donations/recurring-checkout", donationHandler.ProcessRecurringCheckout).Methods("POST", "OPTIONS")
	api.HandleFunc("/donations/{id:[0-9]+}/status", donationHandler.DonationStatus).Methods("GET", "OPTIONS")
	api.HandleFunc("/checkout/errors", donationHandler.CheckoutErrors).Methods("GET", "OPTIONS")
	api.HandleFunc("/health", healthHandler.Health).Methods("GET")

	// Endpoints internos, protegidos por X-Internal-Secret
	internal := api.PathPrefix("/internal").Subrouter()
	internal.HandleFunc("/operator-token", internalHandler.RequireInternalSecret(internalHandler.GenerateOperatorToken)).Methods("POST")
	internal.HandleFunc("/operator-token/refresh", internalHandler.RequireInternalSecret(internalHandler.RefreshOperatorToken)).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware(jwtService))
	admin.HandleFunc("/me", adminHandler.Me).Methods("GET")
	admin.HandleFunc("/donations/{id:[0-9]+}", adminHandler.GetDonation).Methods("GET")
	admin.HandleFunc("/gateway-errors", adminHandler.ListGatewayErrors).Methods("GET")
	admin.Handle("/jobs/{id}/retry", middleware.RequireRole(auth.RoleAdmin)(http.HandlerFunc(adminHandler.RetryJob))).Methods("POST")

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   cfg.Moneris.RequestTimeout + 15*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Primeiro encerrar o HTTP server
	log.Println("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Stopping receipt worker...")
	receiptWorker.Stop()

	log.Println("Closing database connections...")
	db.Close()

	log.Println("Closing Redis connections...")
	jobQueue.Close()

	log.Println("Server exited properly")
}

// buildRegistry registers every recurring gateway that is both listed in
// ACTIVE_GATEWAYS and fully configured.
func buildRegistry(cfg *config.Config, db *database.Connection) *payment.Registry {
	registry := payment.NewRegistry()

	if cfg.IsGatewayActive(moneris.GatewayID) {
		if !cfg.MonerisReady() {
			log.Printf("Warning: moneris is active but MONERIS_STORE_ID or MONERIS_API_TOKEN is missing, skipping")
		} else {
			client := moneris.NewClient(moneris.ClientConfig{
				StoreID:     cfg.Moneris.StoreID,
				APIToken:    cfg.Moneris.APIToken,
				TestMode:    cfg.Moneris.TestMode,
				CountryCode: cfg.Moneris.CountryCode,
				Timeout:     cfg.Moneris.RequestTimeout,
			})
			registry.Register(moneris.NewGateway(client, db, db, moneris.Settings{
				StatementDescriptor:   cfg.Moneris.StatementDescriptor,
				OrderPrefix:           cfg.Moneris.OrderPrefix,
				CollectBillingDetails: cfg.Moneris.CollectBillingDetails,
			}))
			log.Printf("Registered recurring gateway %s (endpoint %s)", moneris.GatewayID, client.Endpoint())
		}
	}

	return registry
}
