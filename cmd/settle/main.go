package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"bountyledger/internal/adapter"
	"bountyledger/internal/infra"
	"bountyledger/internal/ledger"
	"bountyledger/internal/notify"
	"bountyledger/internal/settlement"
)

func main() {
	var (
		keypairFlag     string
		recipientFlag   string
		amountFlag      string
		reportFlag      string
		contributorFlag string
		nameFlag        string
		commentFlag     string
	)

	flag.StringVar(&keypairFlag, "keypair", "", "path to a solana-keygen JSON key file that pays for the transfer")
	flag.StringVar(&recipientFlag, "recipient", "", "base58 wallet address receiving the tokens")
	flag.StringVar(&amountFlag, "amount", "", "token amount, at most 6 decimal places")
	flag.StringVar(&reportFlag, "report", "", "report ID the contribution is recorded against (UUID)")
	flag.StringVar(&contributorFlag, "contributor", "", "contributor ID to record (defaults to the keypair address)")
	flag.StringVar(&nameFlag, "name", "", "contributor display name")
	flag.StringVar(&commentFlag, "comment", "", "optional comment stored with the contribution")
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(keypairFlag) == "" {
		exitWithError(errors.New("-keypair is required"))
	}
	if strings.TrimSpace(reportFlag) == "" {
		exitWithError(errors.New("-report is required"))
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(amountFlag))
	if err != nil {
		exitWithError(fmt.Errorf("invalid -amount %q: %w", amountFlag, err))
	}

	cfg := &infra.Config{
		AppEnv:       "cli",
		LogLevel:     os.Getenv("LOG_LEVEL"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DBMaxConns:   2,
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		NotifyLocale: os.Getenv("NOTIFY_LOCALE"),
		Settlement:   infra.LoadSettlementConfig(),
	}
	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		exitWithError(errors.New("DATABASE_URL or SQLITE_PATH is required"))
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel).With().Str("cmd", "settle").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wallet, err := settlement.LoadKeypairWallet(keypairFlag)
	if err != nil {
		exitWithError(err)
	}
	submitter, err := settlement.NewFromConfig(wallet, cfg.Settlement, logger)
	if err != nil {
		exitWithError(err)
	}

	stores, err := adapter.Open(ctx, cfg, logger)
	if err != nil {
		exitWithError(fmt.Errorf("failed to open store: %w", err))
	}
	defer stores.Close()

	svc := ledger.NewService(stores.Ledger,
		ledger.WithLogger(logger),
		ledger.WithNotifier(notify.NewDispatcher(stores.Notifications, cfg.NotifyLocale, logger)),
	)
	if err := run(ctx, submitter, svc, settleRequest{
		recipient:   recipientFlag,
		amount:      amount,
		reportID:    strings.TrimSpace(reportFlag),
		contributor: firstNonEmpty(contributorFlag, wallet.PublicKey().String()),
		name:        nameFlag,
		comment:     commentFlag,
	}); err != nil {
		svc.Wait()
		stores.Close()
		exitWithError(err)
	}
	svc.Wait()
}

type transferSubmitter interface {
	Submit(ctx context.Context, recipient string, amount decimal.Decimal) (solana.Signature, error)
}

type settleRequest struct {
	recipient   string
	amount      decimal.Decimal
	reportID    string
	contributor string
	name        string
	comment     string
}

// run performs the on-chain transfer and records the contribution once the
// transfer is confirmed. Everything the ledger would reject is checked before
// any tokens move. A confirmed transfer that still fails to record is reported
// with its signature so it can be recorded by hand.
func run(ctx context.Context, submitter transferSubmitter, svc *ledger.Service, req settleRequest) error {
	if err := ledger.ValidateAmount(req.amount); err != nil {
		return err
	}
	if strings.TrimSpace(req.contributor) == "" {
		return errors.New("contributor id is required")
	}
	if _, err := svc.Report(ctx, req.reportID); err != nil {
		return fmt.Errorf("report %s: %w", req.reportID, err)
	}

	sig, err := submitter.Submit(ctx, req.recipient, req.amount)
	if err != nil {
		return fmt.Errorf("settlement failed: %w", err)
	}
	fmt.Printf("transfer confirmed: %s\n", sig)

	contribution, err := svc.Add(ctx, ledger.AddRequest{
		ReportID:             req.reportID,
		ContributorID:        req.contributor,
		ContributorName:      req.name,
		Amount:               req.amount,
		Comment:              req.comment,
		TransactionSignature: sig.String(),
	})
	if err != nil {
		return fmt.Errorf("transfer %s confirmed but recording the contribution failed: %w", sig, err)
	}

	report, err := svc.Report(ctx, req.reportID)
	if err != nil {
		return err
	}
	fmt.Printf("contribution %s recorded, report %s bounty is now %s\n", contribution.ID, report.ID, report.BountyAmount)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
