package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ycchuang/moneybook/internal/advisor"
	"github.com/ycchuang/moneybook/internal/config"
	"github.com/ycchuang/moneybook/internal/domain"
	"github.com/ycchuang/moneybook/internal/export"
	"github.com/ycchuang/moneybook/internal/identity"
	"github.com/ycchuang/moneybook/internal/ledger"
	"github.com/ycchuang/moneybook/internal/logger"
	"github.com/ycchuang/moneybook/internal/projection"
	"github.com/ycchuang/moneybook/internal/report"
	fsstore "github.com/ycchuang/moneybook/internal/store/firestore"
	memstore "github.com/ycchuang/moneybook/internal/store/memory"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "accounts":
		runListAccounts(log)
	case "add-account":
		runAddAccount(log)
	case "delete-account":
		runDeleteAccount(log)
	case "transactions":
		runListTransactions(log)
	case "add":
		runAddTransaction(log)
	case "delete":
		runDeleteTransaction(log)
	case "summary":
		runSummary(log)
	case "advice":
		runAdvice(log)
	case "export":
		runExport(log)
	case "demo":
		runDemo(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("moneybook CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  accounts        List bank accounts")
	fmt.Println("  add-account     Create a bank account")
	fmt.Println("  delete-account  Delete a bank account (transactions are kept)")
	fmt.Println("  transactions    List transactions, newest first")
	fmt.Println("  add             Record an income or expense transaction")
	fmt.Println("  delete          Delete a transaction, reversing its balance effect")
	fmt.Println("  summary         Show net worth, month totals and category breakdown")
	fmt.Println("  advice          Ask the AI advisor for budgeting advice")
	fmt.Println("  export          Upload a JSON snapshot backup to GCS")
	fmt.Println("  demo            Run a scripted scenario against an in-memory store")
	fmt.Println("\nEnvironment:")
	fmt.Println("  GOOGLE_CLOUD_PROJECT  Firestore project id")
	fmt.Println("  MONEYBOOK_USER_ID     acting user id")
}

func openStore(ctx context.Context, log zerolog.Logger) *fsstore.Store {
	cfg := config.FromEnvironment()
	if cfg.ProjectID == "" {
		log.Fatal().Msg("GOOGLE_CLOUD_PROJECT must be set")
	}
	st, err := fsstore.New(ctx, cfg.ProjectID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Firestore")
	}
	return st
}

func currentUser(ctx context.Context, log zerolog.Logger) string {
	uid, err := identity.FromEnv().CurrentUserID(ctx)
	if err != nil {
		log.Fatal().Msg("MONEYBOOK_USER_ID must be set")
	}
	return uid
}

func runListAccounts(log zerolog.Logger) {
	ctx := context.Background()
	st := openStore(ctx, log)
	defer st.Close()

	accounts, err := st.ListAccounts(ctx, currentUser(ctx, log))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list accounts")
	}
	for _, a := range accounts {
		fmt.Printf("%s  %-12s %-20s NT$ %s\n", a.ID, a.Category, a.Name, a.Balance)
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts yet.")
	}
}

func runAddAccount(log zerolog.Logger) {
	fs := flag.NewFlagSet("add-account", flag.ExitOnError)
	name := fs.String("name", "", "account name")
	category := fs.String("type", domain.AccountSavings, "account category")
	balance := fs.String("balance", "0", "opening balance")
	fs.Parse(os.Args[2:])

	if *name == "" {
		log.Fatal().Msg("Error: -name is required")
	}
	opening, err := decimal.NewFromString(*balance)
	if err != nil {
		log.Fatal().Str("balance", *balance).Msg("Invalid opening balance")
	}

	ctx := context.Background()
	st := openStore(ctx, log)
	defer st.Close()

	svc := ledger.New(st, log)
	acct, err := svc.CreateAccount(ctx, currentUser(ctx, log), ledger.CreateAccountInput{
		Name:           *name,
		Category:       *category,
		OpeningBalance: opening,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create account")
	}
	fmt.Printf("Created account %s (%s) with balance NT$ %s\n", acct.ID, acct.Name, acct.Balance)
}

func runDeleteAccount(log zerolog.Logger) {
	fs := flag.NewFlagSet("delete-account", flag.ExitOnError)
	id := fs.String("id", "", "account id")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Error: -id is required")
	}

	ctx := context.Background()
	st := openStore(ctx, log)
	defer st.Close()

	svc := ledger.New(st, log)
	if err := svc.DeleteAccount(ctx, *id); err != nil {
		log.Fatal().Err(err).Msg("Failed to delete account")
	}
	fmt.Println("Account deleted. Its transactions are kept and now reference a missing account.")
}

func runListTransactions(log zerolog.Logger) {
	ctx := context.Background()
	st := openStore(ctx, log)
	defer st.Close()

	txs, err := st.ListTransactions(ctx, currentUser(ctx, log))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}
	printTransactions(txs)
}

func printTransactions(txs []domain.Transaction) {
	for _, t := range txs {
		desc := t.Description
		if desc == "" {
			desc = "-"
		}
		fmt.Printf("%s  %s  %s%s (%s) %s\n", t.ID, t.Date, t.Type.Sign(), t.Amount, t.Category, desc)
	}
	if len(txs) == 0 {
		fmt.Println("No transactions yet.")
	}
}

func runAddTransaction(log zerolog.Logger) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	accountID := fs.String("account", "", "account id")
	kind := fs.String("type", string(domain.Expense), "INCOME or EXPENSE")
	amount := fs.String("amount", "", "positive amount")
	category := fs.String("category", "其他", "transaction category")
	description := fs.String("desc", "", "free-text description")
	dateStr := fs.String("date", "", "effective date YYYY-MM-DD (default today)")
	fs.Parse(os.Args[2:])

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatal().Str("amount", *amount).Msg("Invalid amount")
	}
	date := civil.DateOf(time.Now())
	if *dateStr != "" {
		date, err = civil.ParseDate(*dateStr)
		if err != nil {
			log.Fatal().Str("date", *dateStr).Msg("Invalid date, expected YYYY-MM-DD")
		}
	}

	ctx := context.Background()
	st := openStore(ctx, log)
	defer st.Close()

	svc := ledger.New(st, log)
	tx, err := svc.AddTransaction(ctx, currentUser(ctx, log), ledger.AddTransactionInput{
		AccountID:   *accountID,
		Type:        domain.TransactionType(*kind),
		Amount:      amt,
		Category:    *category,
		Description: *description,
		Date:        date,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to record transaction")
	}
	fmt.Printf("Recorded %s %s%s on account %s\n", tx.ID, tx.Type.Sign(), tx.Amount, tx.AccountID)
}

func runDeleteTransaction(log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "transaction id")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Error: -id is required")
	}

	ctx := context.Background()
	st := openStore(ctx, log)
	defer st.Close()

	tx, err := st.GetTransaction(ctx, *id)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transaction")
	}

	svc := ledger.New(st, log)
	if err := svc.DeleteTransaction(ctx, *tx); err != nil {
		log.Fatal().Err(err).Msg("Failed to delete transaction")
	}
	fmt.Println("Transaction deleted; account balance adjusted back.")
}

func runSummary(log zerolog.Logger) {
	ctx := context.Background()
	st := openStore(ctx, log)
	defer st.Close()

	uid := currentUser(ctx, log)
	accounts, err := st.ListAccounts(ctx, uid)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list accounts")
	}
	txs, err := st.ListTransactions(ctx, uid)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}
	printSummary(accounts, txs)
}

func printSummary(accounts []domain.Account, txs []domain.Transaction) {
	today := civil.DateOf(time.Now())
	month := report.CurrentMonthTotals(txs, today)

	fmt.Printf("Net worth:      NT$ %s\n", report.NetWorth(accounts))
	fmt.Printf("Month income:   NT$ %s\n", month.Income)
	fmt.Printf("Month expense:  NT$ %s\n", month.Expense)

	fmt.Println("\nExpenses by category:")
	breakdown := report.ExpenseByCategory(txs)
	for _, c := range breakdown {
		fmt.Printf("  %-12s NT$ %s\n", c.Category, c.Total)
	}
	if len(breakdown) == 0 {
		fmt.Println("  (none)")
	}

	fmt.Println("\nTrailing 6 months:")
	for _, b := range report.TrailingMonths(txs, today, 6) {
		fmt.Printf("  %-8s income NT$ %-12s expense NT$ %s\n", b.Label(), b.Income, b.Expense)
	}
}

func runAdvice(log zerolog.Logger) {
	cfg := config.FromEnvironment()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st := openStore(ctx, log)
	defer st.Close()

	uid := currentUser(ctx, log)
	accounts, err := st.ListAccounts(ctx, uid)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list accounts")
	}
	txs, err := st.ListTransactions(ctx, uid)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	adv := advisor.New(&advisor.GeminiGenerator{Model: cfg.GeminiModel}, log)
	fmt.Println(adv.Advise(ctx, accounts, txs))
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	bucket := fs.String("bucket", config.FromEnvironment().ExportBucket, "GCS bucket name")
	fs.Parse(os.Args[2:])

	if *bucket == "" {
		log.Fatal().Msg("Error: -bucket is required (or set MONEYBOOK_EXPORT_BUCKET)")
	}

	ctx := context.Background()
	st := openStore(ctx, log)
	defer st.Close()

	uid := currentUser(ctx, log)
	accounts, err := st.ListAccounts(ctx, uid)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list accounts")
	}
	txs, err := st.ListTransactions(ctx, uid)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	now := time.Now()
	uri, err := export.Upload(ctx, *bucket, export.ObjectName(uid, now), export.Snapshot{
		UserID:       uid,
		ExportedAt:   now,
		Accounts:     accounts,
		Transactions: txs,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to upload export")
	}
	fmt.Printf("Snapshot exported to %s\n", uri)
}

// runDemo walks the canonical scenario against an in-memory store while a
// projector tails the live snapshots, so the balance protocol and the
// reactive layer can be watched without any cloud credentials.
func runDemo(log zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const uid = "demo-user"
	st := memstore.New()
	defer st.Close()

	proj, err := projection.New(ctx, st, uid, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start projector")
	}
	defer proj.Close()

	snapshots, cancelSub := proj.Subscribe()
	defer cancelSub()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range snapshots {
			fmt.Printf("[watch] accounts=%d transactions=%d net worth NT$ %s\n",
				len(snap.Accounts), len(snap.Transactions), report.NetWorth(snap.Accounts))
		}
	}()

	svc := ledger.New(st, log)
	acct, err := svc.CreateAccount(ctx, uid, ledger.CreateAccountInput{
		Name:           "示範帳戶",
		Category:       domain.AccountSavings,
		OpeningBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("demo: create account")
	}

	today := civil.DateOf(time.Now())
	expense, err := svc.AddTransaction(ctx, uid, ledger.AddTransactionInput{
		AccountID: acct.ID,
		Type:      domain.Expense,
		Amount:    decimal.NewFromInt(200),
		Category:  "飲食",
		Date:      today,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("demo: add expense")
	}
	if _, err := svc.AddTransaction(ctx, uid, ledger.AddTransactionInput{
		AccountID: acct.ID,
		Type:      domain.Income,
		Amount:    decimal.NewFromInt(500),
		Category:  "薪資",
		Date:      today,
	}); err != nil {
		log.Fatal().Err(err).Msg("demo: add income")
	}
	if err := svc.DeleteTransaction(ctx, *expense); err != nil {
		log.Fatal().Err(err).Msg("demo: delete expense")
	}

	// Let the watcher drain the last snapshot before printing the summary.
	time.Sleep(100 * time.Millisecond)
	cancelSub()
	<-done

	accounts, _ := st.ListAccounts(ctx, uid)
	txs, _ := st.ListTransactions(ctx, uid)
	fmt.Println()
	printSummary(accounts, txs)
}
