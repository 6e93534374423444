// Package handlers exposes the ledger over HTTP. Handlers translate between
// request shapes and the ledger/report/advisor packages; they own no
// protocol logic themselves.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ycchuang/moneybook/internal/api/middleware"
	"github.com/ycchuang/moneybook/internal/domain"
	"github.com/ycchuang/moneybook/internal/export"
	"github.com/ycchuang/moneybook/internal/jobs"
	"github.com/ycchuang/moneybook/internal/ledger"
	"github.com/ycchuang/moneybook/internal/report"
	"github.com/ycchuang/moneybook/internal/store"
)

// LedgerHandler serves account and transaction endpoints.
type LedgerHandler struct {
	svc   *ledger.Service
	store store.Store
	log   zerolog.Logger
}

func NewLedgerHandler(svc *ledger.Service, st store.Store, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, store: st, log: log}
}

// ListAccounts handles GET /api/accounts
func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accounts, err := h.store.ListAccounts(ctx, middleware.UserIDFrom(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// CreateAccount handles POST /api/accounts
func (h *LedgerHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Balance string `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Account name is required")
		return
	}
	opening := decimal.Zero
	if req.Balance != "" {
		var err error
		opening, err = decimal.NewFromString(req.Balance)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid opening balance")
			return
		}
	}

	ctx := r.Context()
	acct, err := h.svc.CreateAccount(ctx, middleware.UserIDFrom(ctx), ledger.CreateAccountInput{
		Name:           req.Name,
		Category:       req.Type,
		OpeningBalance: opening,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, acct)
}

// DeleteAccount handles DELETE /api/accounts/{id}. The account's
// transactions survive with dangling references, matching the documented
// deletion policy.
func (h *LedgerHandler) DeleteAccount(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteAccount(r.Context(), id); err != nil {
		h.log.Error().Err(err).Str("account_id", id).Msg("Failed to delete account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// ListTransactions handles GET /api/transactions
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txs, err := h.store.ListTransactions(ctx, middleware.UserIDFrom(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// CreateTransaction handles POST /api/transactions
func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   string `json:"accountId"`
		Type        string `json:"type"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
		Description string `json:"description"`
		Date        string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	date := civil.DateOf(time.Now())
	if req.Date != "" {
		date, err = civil.ParseDate(req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
	}

	ctx := r.Context()
	tx, err := h.svc.AddTransaction(ctx, middleware.UserIDFrom(ctx), ledger.AddTransactionInput{
		AccountID:   req.AccountID,
		Type:        domain.TransactionType(req.Type),
		Amount:      amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
	})
	switch {
	case errors.Is(err, domain.ErrNoAccount),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidType):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to record transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *LedgerHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	tx, err := h.store.GetTransaction(ctx, id)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to load transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load transaction")
		return
	}
	if tx.UserID != middleware.UserIDFrom(ctx) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err := h.svc.DeleteTransaction(ctx, *tx); err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// SummaryHandler serves the aggregated dashboard figures.
type SummaryHandler struct {
	store store.Store
	log   zerolog.Logger
}

func NewSummaryHandler(st store.Store, log zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{store: st, log: log}
}

// Summary handles GET /api/summary
func (h *SummaryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFrom(ctx)

	accounts, err := h.store.ListAccounts(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}
	txs, err := h.store.ListTransactions(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	today := civil.DateOf(time.Now())
	month := report.CurrentMonthTotals(txs, today)
	trailing := report.TrailingMonths(txs, today, 6)

	type monthJSON struct {
		Month   string          `json:"month"`
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
	}
	months := make([]monthJSON, 0, len(trailing))
	for _, b := range trailing {
		months = append(months, monthJSON{Month: b.Label(), Income: b.Income, Expense: b.Expense})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"netWorth":     report.NetWorth(accounts),
		"monthIncome":  month.Income,
		"monthExpense": month.Expense,
		"categories":   report.ExpenseByCategory(txs),
		"trend":        months,
	})
}

// AdviceHandler enqueues advice jobs and reports their state.
type AdviceHandler struct {
	publisher jobs.Publisher
	jobStore  jobs.JobStore
	log       zerolog.Logger
}

func NewAdviceHandler(publisher jobs.Publisher, jobStore jobs.JobStore, log zerolog.Logger) *AdviceHandler {
	return &AdviceHandler{publisher: publisher, jobStore: jobStore, log: log}
}

// RequestAdvice handles POST /api/advice
func (h *AdviceHandler) RequestAdvice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	job := &jobs.AdviceJob{UserID: middleware.UserIDFrom(ctx)}
	if err := h.publisher.PublishAdvice(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue advice job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to request advice")
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// GetAdviceJob handles GET /api/advice/{id}
func (h *AdviceHandler) GetAdviceJob(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.jobStore.GetJob(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.UserID != middleware.UserIDFrom(r.Context()) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ExportHandler uploads snapshot backups to GCS.
type ExportHandler struct {
	store  store.Store
	bucket string
	log    zerolog.Logger
}

func NewExportHandler(st store.Store, bucket string, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{store: st, bucket: bucket, log: log}
}

// Export handles POST /api/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Export bucket is not configured")
		return
	}
	ctx := r.Context()
	userID := middleware.UserIDFrom(ctx)

	accounts, err := h.store.ListAccounts(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export snapshot")
		return
	}
	txs, err := h.store.ListTransactions(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export snapshot")
		return
	}

	now := time.Now()
	uri, err := export.Upload(ctx, h.bucket, export.ObjectName(userID, now), export.Snapshot{
		UserID:       userID,
		ExportedAt:   now,
		Accounts:     accounts,
		Transactions: txs,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to upload export")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export snapshot")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"uri": uri})
}
