package main

import (
	"context"
	"net/http"
	"os"

	webAdapter "course-billing/internal/adapters/web"

	"course-billing/internal/adapters/mailer"
	"course-billing/internal/app"
	"course-billing/internal/core"
	"course-billing/internal/db"
	"course-billing/internal/observability/metrics"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger := app.NewLogger(os.Getenv("APP_ENV"))
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}

	metrics.Init()

	docService := core.NewDocumentService(pool)
	bookingService := core.NewBookingService(pool, docService)
	offerService := core.NewOfferService(pool)
	customerService := core.NewCustomerService(pool)
	exportService := core.NewExportService(pool)

	mailerClient := mailer.NewClient(os.Getenv("MAILER_URL"), os.Getenv("MAILER_API_KEY"))
	if !mailerClient.Enabled() {
		logger.Warn("MAILER_URL is not set; document sending is disabled")
	}

	svc := app.NewAppService(pool, bookingService, docService, offerService,
		customerService, exportService, mailerClient, logger)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, logger, allowedOrigins)

	logger.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
