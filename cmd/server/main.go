package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leaselane/backend/internal/database"
	"github.com/leaselane/backend/internal/handlers"
	mW "github.com/leaselane/backend/internal/middleware"
	"github.com/leaselane/backend/internal/services"
	"github.com/leaselane/backend/internal/store"
	"github.com/spf13/viper"
)

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	if viper.GetString("jwt.secret_key") == "" {
		log.Println("Warning: jwt.secret_key not set, using development default")
		viper.Set("jwt.secret_key", "dev-only-secret")
	}

	// Initialize the contract store and services
	contractStore := store.New()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	workflowService := services.NewRentalWorkflowService(contractStore)
	paymentService := services.NewPaymentLedgerService(contractStore, workflowService, redisClient)
	authService := services.NewAuthService()

	leaseHandler := handlers.NewLeaseHandler(workflowService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, workflowService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/token", authService.IssueToken)

		// Protected endpoints (party auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/proposals", leaseHandler.Invite)
			r.Get("/proposals/{id}", leaseHandler.Inspect)
			r.Post("/proposals/{id}/accept", leaseHandler.Accept)
			r.Post("/proposals/{id}/reject", leaseHandler.Reject)

			r.Get("/agreements/{id}", leaseHandler.Inspect)

			r.Get("/ledgers/{id}/rent-due", paymentHandler.GetRentDue)
			r.Post("/ledgers/{id}/payments", paymentHandler.PayRent)

			r.Get("/contracts", leaseHandler.Query)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
