package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ycchuang/moneybook/internal/advisor"
	"github.com/ycchuang/moneybook/internal/api/handlers"
	"github.com/ycchuang/moneybook/internal/api/middleware"
	"github.com/ycchuang/moneybook/internal/config"
	"github.com/ycchuang/moneybook/internal/identity"
	"github.com/ycchuang/moneybook/internal/jobs"
	"github.com/ycchuang/moneybook/internal/jobs/inmemory"
	"github.com/ycchuang/moneybook/internal/ledger"
	"github.com/ycchuang/moneybook/internal/logger"
	fsstore "github.com/ycchuang/moneybook/internal/store/firestore"
)

func main() {
	cfg := config.FromEnvironment()

	var (
		port   = flag.String("port", cfg.Port, "HTTP server port")
		bucket = flag.String("bucket", cfg.ExportBucket, "GCS bucket for snapshot exports (or set MONEYBOOK_EXPORT_BUCKET)")
	)
	flag.Parse()

	log := logger.New()

	if cfg.ProjectID == "" {
		log.Fatal().Msg("GOOGLE_CLOUD_PROJECT must be set")
	}
	if *bucket == "" {
		log.Warn().Msg("No export bucket configured - snapshot exports will be disabled")
	}

	ctx := context.Background()

	st, err := fsstore.New(ctx, cfg.ProjectID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Firestore")
	}
	defer st.Close()

	provider := identity.FromEnv()
	ledgerSvc := ledger.New(st, log)
	adv := advisor.New(&advisor.GeminiGenerator{Model: cfg.GeminiModel}, log)

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.AdviceQueueSize, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Advice jobs read the user's current snapshot and ask the model. The
	// advisor itself never fails (fallback text), so only store reads can
	// fail a job.
	adviceHandler := func(ctx context.Context, job *jobs.AdviceJob) (string, error) {
		accounts, err := st.ListAccounts(ctx, job.UserID)
		if err != nil {
			return "", err
		}
		txs, err := st.ListTransactions(ctx, job.UserID)
		if err != nil {
			return "", err
		}
		return adv.Advise(ctx, accounts, txs), nil
	}

	go func() {
		log.Info().Msg("Starting advice worker")
		if err := jobQueue.Start(workerCtx, adviceHandler); err != nil {
			log.Error().Err(err).Msg("Advice worker stopped with error")
		}
	}()

	ledgerHandler := handlers.NewLedgerHandler(ledgerSvc, st, log)
	summaryHandler := handlers.NewSummaryHandler(st, log)
	adviceAPI := handlers.NewAdviceHandler(jobQueue, jobStore, log)
	exportHandler := handlers.NewExportHandler(st, *bucket, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ledgerHandler.ListAccounts(w, r)
		case http.MethodPost:
			ledgerHandler.CreateAccount(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Account ID is required")
			return
		}
		if r.Method == http.MethodDelete {
			ledgerHandler.DeleteAccount(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ledgerHandler.ListTransactions(w, r)
		case http.MethodPost:
			ledgerHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		if r.Method == http.MethodDelete {
			ledgerHandler.DeleteTransaction(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			summaryHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/advice", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			adviceAPI.RequestAdvice(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/advice/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/advice/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		if r.Method == http.MethodGet {
			adviceAPI.GetAdviceJob(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			exportHandler.Export(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Identity(provider)(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping advice queue")
	}

	log.Info().Msg("Server exited")
}
