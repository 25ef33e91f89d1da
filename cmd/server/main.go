package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intlpay/backend/docs"
	"github.com/intlpay/backend/internal/audit"
	"github.com/intlpay/backend/internal/config"
	"github.com/intlpay/backend/internal/database"
	"github.com/intlpay/backend/internal/handlers"
	mW "github.com/intlpay/backend/internal/middleware"
	"github.com/intlpay/backend/internal/services"
)

// @title International Payments Portal API
// @version 1.0
// @description Role-based portal for submitting and reviewing international payments
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	limits := config.LoadRateLimitConfig()

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditLogger := audit.NewAuditLogger()
	hasher := services.NewPasswordHasher(cfg.Argon2)
	tokenService := services.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.Expiry)
	accountService := services.NewAccountService(db, hasher, auditLogger)
	transactionService := services.NewTransactionService(db, auditLogger, cfg.Payments.Currency)

	h := handlers.New(handlers.Deps{
		Accounts:     accountService,
		Transactions: transactionService,
		Reports:      services.NewReportService(db, accountService, transactionService),
		Tokens:       tokenService,
		Limiter:      services.NewRateLimiter(redisClient, limits),
		ISO20022:     services.NewISO20022Service(cfg.Payments.DebtorAgentBIC),
		QR:           services.NewQRService(),
		Validator:    services.NewValidationHelper(),
		Audit:        auditLogger,
		Debug:        !cfg.IsProduction(),
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	r := handlers.NewRouter(h, tokenService, mW.Pipeline(ctx, cfg, limits)...)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s (%s)", cfg.Server.Port, cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
