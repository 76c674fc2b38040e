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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/subslot/backend/internal/config"
	"github.com/subslot/backend/internal/handler"
	"github.com/subslot/backend/internal/metrics"
	appMiddleware "github.com/subslot/backend/internal/middleware"
	"github.com/subslot/backend/internal/platform"
	"github.com/subslot/backend/internal/registrar"
	"github.com/subslot/backend/internal/repository"
	"github.com/subslot/backend/internal/service"
	"github.com/subslot/backend/pkg/crypto"
	"github.com/subslot/backend/pkg/payment"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	// Initialize database
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := repository.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Println("database connected & migrated")

	// Initialize encryptor for platform credentials at rest
	enc, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("encryption error: %v", err)
	}

	metrics.Init()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	baseDomainRepo := repository.NewBaseDomainRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	bindingRepo := repository.NewBindingRepository(db)

	// External clients
	registrarClient := registrar.NewClient(cfg.RegistrarAPIURL, cfg.RegistrarToken, cfg.UpstreamTimeout)
	platformClient := platform.NewClient(cfg.PlatformAPIURL, cfg.UpstreamTimeout)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, userRepo)
	if err := authSvc.SeedAdmin(ctx); err != nil {
		log.Fatalf("admin seed error: %v", err)
	}

	purchaseSvc := service.NewPurchaseService(purchaseRepo, baseDomainRepo, payment.NewMockGateway())
	bindingSvc := service.NewBindingService(bindingRepo, purchaseRepo, baseDomainRepo, registrarClient, platformClient, enc)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(authSvc)
	domainsHandler := handler.NewDomainsHandler(baseDomainRepo)
	purchaseHandler := handler.NewPurchaseHandler(purchaseSvc)
	bindingHandler := handler.NewBindingHandler(bindingSvc)
	healthHandler := handler.NewHealthHandler(db)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Public routes
	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/api/domains", domainsHandler.List)

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		// Auth
		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/auth/me", authHandler.Me)

		// Purchases
		r.Post("/api/checkout", purchaseHandler.Checkout)
		r.Get("/api/purchases", purchaseHandler.List)
		r.Get("/api/purchases/{id}", purchaseHandler.GetByID)

		// Bindings
		r.Put("/api/purchases/{id}/binding", bindingHandler.Bind)
		r.Get("/api/purchases/{id}/binding", bindingHandler.Get)
		r.Delete("/api/purchases/{id}/binding", bindingHandler.Unbind)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Post("/api/domains", domainsHandler.Create)
			r.Get("/api/users", userHandler.List)
			r.Post("/api/users", userHandler.Create)
			r.Delete("/api/users/{id}", userHandler.Delete)
			r.Post("/api/payment/simulate", purchaseHandler.Simulate)
		})
	})

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("subslot backend listening at http://%s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
