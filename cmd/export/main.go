// Command export writes the filtered billing-document set of one provider to
// a file, in the same formats the HTTP API serves.
package main

import (
	"context"
	"flag"
	"os"
	"strings"

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

	provider := flag.String("provider", "", "provider code (required)")
	format := flag.String("format", "csv", "export format: csv, datev, xlsx, zip")
	kinds := flag.String("kinds", "", "comma-separated document kinds (default: all)")
	from := flag.String("from", "", "inclusive issued-at lower bound, YYYY-MM-DD")
	to := flag.String("to", "", "inclusive issued-at upper bound, YYYY-MM-DD")
	query := flag.String("q", "", "free-text filter")
	out := flag.String("out", "", "output file (default: server-chosen name in the working directory)")
	flag.Parse()

	logger := app.NewLogger(os.Getenv("APP_ENV"))
	defer logger.Sync()

	if *provider == "" {
		logger.Fatal("missing required -provider flag")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	metrics.Init()

	docService := core.NewDocumentService(pool)
	svc := app.NewAppService(pool,
		core.NewBookingService(pool, docService),
		docService,
		core.NewOfferService(pool),
		core.NewCustomerService(pool),
		core.NewExportService(pool),
		mailer.NewClient("", ""),
		logger)

	var kindList []string
	if *kinds != "" {
		kindList = strings.Split(*kinds, ",")
	}

	file, err := svc.ExportDocuments(ctx, *provider, *format, app.DocumentQuery{
		Kinds:    kindList,
		DateFrom: *from,
		DateTo:   *to,
		Query:    *query,
	})
	if err != nil {
		logger.Fatal("export", zap.Error(err))
	}

	path := *out
	if path == "" {
		path = file.Filename
	}
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		logger.Fatal("write output file", zap.Error(err))
	}
	logger.Info("export written",
		zap.String("path", path),
		zap.Int("bytes", len(file.Data)))
}
