// ======================================
// File: cmd/curvesim/main.go
// ======================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/config"
	"github.com/rovshanmuradov/curve-engine/internal/engine"
	"github.com/rovshanmuradov/curve-engine/internal/export"
	"github.com/rovshanmuradov/curve-engine/internal/scenario"
	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

const exportPageSize = 10_000

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	scenarioPath := flag.String("scenario", "configs/scenario.yaml", "path to scenario file")
	exportDir := flag.String("export-dir", "", "write the trade journal to this directory")
	exportFormat := flag.String("export-format", string(export.FormatCSV), "journal format: csv or json")
	flag.Parse()

	if err := run(*configPath, *scenarioPath, *exportDir, export.ExportFormat(*exportFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "curvesim: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, scenarioPath, exportDir string, format export.ExportFormat) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	s, err := scenario.Load(scenarioPath)
	if err != nil {
		return err
	}

	start := s.StartTime
	if start == 0 {
		start = time.Now().Unix()
	}
	clock := scenario.NewClock(start)

	e, err := engine.New(ctx, cfg, engine.WithClock(clock.Now))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Close(closeCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	if cfg.Metrics.Enabled {
		if _, err := e.ServeMetrics(cfg.Metrics.Listen); err != nil {
			return err
		}
	}

	runner := scenario.NewRunner(e.Program, e.Ledger, e.Quotes, clock, e.Logger.Logger)
	report, runErr := runner.Run(ctx, s)
	if report != nil {
		printReport(report)
	}
	if runErr != nil {
		return runErr
	}

	if exportDir != "" {
		path, err := exportJournal(ctx, e, report, exportDir, format)
		if err != nil {
			return err
		}
		e.Logger.Info("📄 Trade journal exported", zap.String("path", path))
	}

	if cfg.Metrics.Enabled {
		e.Logger.Info("📊 Serving metrics, press Ctrl+C to exit", zap.String("listen", cfg.Metrics.Listen))
		<-ctx.Done()
	}
	return nil
}

func printReport(r *scenario.Report) {
	fmt.Printf("Scenario %q: %d steps\n\n", r.Name, len(r.Steps))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tACTION\tCURVE\tUSER\tRESULT")
	for _, step := range r.Steps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", step.Index, step.Action, step.Curve, step.User, describe(step))
	}
	_ = w.Flush()

	if len(r.Curves) == 0 {
		return
	}
	labels := make([]string, 0, len(r.Curves))
	for label := range r.Curves {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	fmt.Println()
	for _, label := range labels {
		fmt.Printf("%s => %s\n", label, r.Curves[label])
	}
}

func describe(step scenario.StepResult) string {
	switch {
	case step.Err != nil && step.Expected:
		return "rejected as expected: " + step.Err.Error()
	case step.Err != nil:
		return "FAILED: " + step.Err.Error()
	case step.Create != nil:
		return fmt.Sprintf("mint %s, start %d", step.Create.Mint, step.Create.Curve.StartTime)
	case step.Swap != nil:
		out := fmt.Sprintf("sol %d, tokens %d, fee %d", step.Swap.SolAmount, step.Swap.TokenAmount, step.Swap.FeeLamports)
		if step.Swap.Graduated {
			out += " (graduated)"
		}
		return out
	case step.Quote != nil:
		return fmt.Sprintf("in %d, out %d, fee %d (%s), impact %.2f%%",
			step.Quote.AmountIn, step.Quote.AmountOut, step.Quote.FeeLamports, step.Quote.FeePhase, step.Quote.PriceImpactPct)
	default:
		return fmt.Sprintf("ok, now %d", step.Now)
	}
}

func exportJournal(ctx context.Context, e *engine.Engine, r *scenario.Report, dir string, format export.ExportFormat) (string, error) {
	var trades []*models.Trade
	for _, mint := range r.Curves {
		page, err := e.Store.ListTrades(ctx, mint.String(), exportPageSize, 0)
		if err != nil {
			return "", fmt.Errorf("failed to list trades: %w", err)
		}
		trades = append(trades, page...)
	}

	exporter := export.NewTradeExporter(e.Logger.Logger)
	return exporter.ExportTrades(trades, export.ExportOptions{Format: format, OutputDir: dir})
}
