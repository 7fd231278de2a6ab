package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gasnusa/gasnusa/cmd/gasnusa/cli"
	"github.com/gasnusa/gasnusa/internal/allocation"
	"github.com/gasnusa/gasnusa/internal/app"
	"github.com/gasnusa/gasnusa/internal/platform/db"
	"github.com/gasnusa/gasnusa/internal/shared"
)

const usage = `usage: gasnusa <command> [flags]

commands:
  sync-check        verify the four quantity totals agree for a window
  resync            rebuild distribution records and order stock movements for a window
  audit             enqueue a sync audit on the worker queue
  queue             show background queue statistics
  seed-catalog      insert the canonical LPG products when missing
  stock-in          record an inward stock receipt
  stock-adjust      record a signed stock adjustment after a physical count
  balance           show the current stock balance of a variant
  order-show        print one order with its items
  order-transition  move an order to a target status
  plan-set          upsert the daily allocation plan for a pangkalan
  plan-summary      show a month's planned totals against the ceiling
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	ctx := context.Background()

	var runErr error
	switch os.Args[1] {
	case "sync-check":
		runErr = runSyncCheck(ctx, cfg, logger, os.Args[2:])
	case "resync":
		runErr = runResync(ctx, cfg, logger, os.Args[2:])
	case "audit":
		runErr = runAudit(ctx, cfg, os.Args[2:])
	case "queue":
		runErr = runQueue(ctx, cfg)
	case "seed-catalog":
		runErr = runSeed(ctx, cfg, logger)
	case "stock-in", "stock-adjust", "balance":
		runErr = runStock(ctx, cfg, logger, os.Args[1], os.Args[2:])
	case "order-show", "order-transition":
		runErr = runOrder(ctx, cfg, logger, os.Args[1], os.Args[2:])
	case "plan-set", "plan-summary":
		runErr = runPlan(ctx, cfg, os.Args[1], os.Args[2:])
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if runErr != nil {
		logger.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", runErr))
		os.Exit(1)
	}
}

func parseWindow(fs *flag.FlagSet, args []string) (shared.DateRange, *flag.FlagSet, error) {
	from := fs.String("from", "", "window start (YYYY-MM-DD)")
	to := fs.String("to", "", "window end (YYYY-MM-DD, inclusive)")
	if err := fs.Parse(args); err != nil {
		return shared.DateRange{}, fs, err
	}
	fromDay, err := time.Parse("2006-01-02", *from)
	if err != nil {
		return shared.DateRange{}, fs, fmt.Errorf("parse -from: %w", err)
	}
	toDay, err := time.Parse("2006-01-02", *to)
	if err != nil {
		return shared.DateRange{}, fs, fmt.Errorf("parse -to: %w", err)
	}
	rng := shared.NewDateRange(fromDay, toDay)
	return rng, fs, rng.Validate()
}

func runSyncCheck(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	rng, _, err := parseWindow(flag.NewFlagSet("sync-check", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	report, err := cli.NewReconCLI(pool, logger).CheckSync(ctx, rng)
	if err != nil {
		return err
	}
	fmt.Println(cli.RenderReport(report))
	if !report.InSync {
		os.Exit(3)
	}
	return nil
}

func runResync(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("resync", flag.ContinueOnError)
	actorID := fs.Int64("actor", 0, "acting admin user id")
	rng, _, err := parseWindow(fs, args)
	if err != nil {
		return err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	reconCLI := cli.NewReconCLI(pool, logger)
	if err := reconCLI.Resync(ctx, rng, *actorID); err != nil {
		return err
	}
	report, err := reconCLI.CheckSync(ctx, rng)
	if err != nil {
		return err
	}
	fmt.Println(cli.RenderReport(report))
	return nil
}

func runAudit(ctx context.Context, cfg *app.Config, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	windowDays := fs.Int("window-days", 7, "trailing days to audit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	info, err := jobsCLI.TriggerSyncAudit(ctx, *windowDays)
	if err != nil {
		return err
	}
	fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return nil
}

func runQueue(ctx context.Context, cfg *app.Config) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	stats, err := jobsCLI.InspectQueue(ctx)
	if err != nil {
		return err
	}
	fmt.Println(stats)
	return nil
}

func runSeed(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	created, err := cli.SeedCatalog(ctx, pool, logger)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d products\n", created)
	return nil
}

func runStock(ctx context.Context, cfg *app.Config, logger *slog.Logger, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	variant := fs.String("variant", "", "LPG variant label (e.g. kg3, 12kg)")
	qty := fs.Int64("qty", 0, "quantity (signed for stock-adjust)")
	note := fs.String("note", "", "movement note")
	actorID := fs.Int64("actor", 0, "acting admin user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	stockCLI := cli.NewStockCLI(pool, logger)

	switch command {
	case "stock-in":
		id, err := stockCLI.RecordReceipt(ctx, *variant, *qty, *note, *actorID)
		if err != nil {
			return err
		}
		fmt.Printf("recorded movement %d\n", id)
	case "stock-adjust":
		id, err := stockCLI.RecordAdjustment(ctx, *variant, *qty, *note, *actorID)
		if err != nil {
			return err
		}
		fmt.Printf("recorded movement %d\n", id)
	case "balance":
		balance, err := stockCLI.Balance(ctx, *variant)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d\n", *variant, balance)
	}
	return nil
}

func runOrder(ctx context.Context, cfg *app.Config, logger *slog.Logger, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	orderID := fs.Int64("id", 0, "order id")
	target := fs.String("to", "", "target status (order-transition)")
	actorID := fs.Int64("actor", 0, "acting admin user id")
	paymentType := fs.String("payment-type", "", "payment type recorded on completion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	ordersCLI := cli.NewOrdersCLI(pool, cfg, logger)

	switch command {
	case "order-show":
		order, err := ordersCLI.Show(ctx, *orderID)
		if err != nil {
			return err
		}
		fmt.Print(cli.RenderOrder(order))
	case "order-transition":
		if err := ordersCLI.Transition(ctx, *orderID, *target, *actorID, *paymentType); err != nil {
			return err
		}
		fmt.Printf("order %d -> %s\n", *orderID, *target)
	}
	return nil
}

func runPlan(ctx context.Context, cfg *app.Config, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	pangkalanID := fs.Int64("pangkalan", 0, "pangkalan id")
	date := fs.String("date", "", "plan date (YYYY-MM-DD)")
	month := fs.String("month", "", "month (YYYY-MM, plan-summary)")
	normal := fs.Int64("normal", 0, "normal quota")
	fakultatif := fs.Int64("fakultatif", 0, "fakultatif quota")
	ceiling := fs.Int64("ceiling", 0, "monthly ceiling")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	planCLI := cli.NewPlanCLI(pool)

	switch command {
	case "plan-set":
		day, err := time.Parse("2006-01-02", *date)
		if err != nil {
			return fmt.Errorf("parse -date: %w", err)
		}
		return planCLI.Set(ctx, allocation.PlanInput{
			PangkalanID:    *pangkalanID,
			Date:           day,
			Normal:         *normal,
			Fakultatif:     *fakultatif,
			MonthlyCeiling: *ceiling,
		})
	case "plan-summary":
		m, err := time.Parse("2006-01", *month)
		if err != nil {
			return fmt.Errorf("parse -month: %w", err)
		}
		line, err := planCLI.Summary(ctx, *pangkalanID, m)
		if err != nil {
			return err
		}
		fmt.Println(line)
	}
	return nil
}
