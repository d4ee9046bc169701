package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/netzah/ledger-engine/internal/config"
	"github.com/netzah/ledger-engine/internal/handler"
	"github.com/netzah/ledger-engine/internal/repository"
	"github.com/netzah/ledger-engine/internal/service"
	"github.com/netzah/ledger-engine/pkg/logger"
	"github.com/netzah/ledger-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.IsDevelopment(),
	})

	// Initialize database
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	borrowingRepo := repository.NewBorrowingRepository(db)
	txManager := repository.NewTxManager(db)

	// Initialize services
	feesService := service.NewFeesService(invoiceRepo, paymentRepo, txManager, redisClient, cfg)
	libraryService := service.NewLibraryService(borrowingRepo, redisClient, cfg)

	feesHandler := handler.NewFeesHandler(feesService)
	circulationHandler := handler.NewCirculationHandler(libraryService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(feesHandler, circulationHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(fees *handler.FeesHandler, circulation *handler.CirculationHandler, health *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", health.Health).Methods("GET")
	router.HandleFunc("/health/ready", health.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Invoice and payment ledgers
	api.HandleFunc("/invoices", fees.IssueInvoice).Methods("POST")
	api.HandleFunc("/invoices/{invoiceId}", fees.GetInvoice).Methods("GET")
	api.HandleFunc("/invoices/{invoiceId}/balance", fees.Balance).Methods("GET")
	api.HandleFunc("/invoices/{invoiceId}/payments", fees.RecordPayment).Methods("POST")
	api.HandleFunc("/invoices/{invoiceId}/payments", fees.InvoicePayments).Methods("GET")
	api.HandleFunc("/payments/{paymentId}/reverse", fees.ReversePayment).Methods("POST")
	api.HandleFunc("/students/{studentId}/payments", fees.StudentPayments).Methods("GET")
	api.HandleFunc("/finance/summary", fees.FinanceSummary).Methods("GET")

	// Library circulation and fine ledger
	api.HandleFunc("/loans", circulation.IssueBook).Methods("POST")
	api.HandleFunc("/loans/{loanId}/assessment", circulation.AssessFine).Methods("GET")
	api.HandleFunc("/loans/{loanId}/return", circulation.ReturnBook).Methods("POST")
	api.HandleFunc("/loans/{loanId}/fine-payments", circulation.CollectFine).Methods("POST")
	api.HandleFunc("/loans/{loanId}/outstanding", circulation.Outstanding).Methods("GET")
	api.HandleFunc("/borrowers/{borrowerId}/loans", circulation.BorrowerLoans).Methods("GET")
	api.HandleFunc("/library/summary", circulation.LibrarySummary).Methods("GET")

	return router
}
