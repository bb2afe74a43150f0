package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/config"
	"github.com/rovshanmuradov/curve-engine/internal/engine"
	"github.com/rovshanmuradov/curve-engine/internal/scenario"
	"github.com/rovshanmuradov/curve-engine/internal/settlement"
	"github.com/rovshanmuradov/curve-engine/internal/ui"
)

const traderAirdrop = 1_000 * 1_000_000_000

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// вывод в консоль ломает экран TUI
	cfg.Log.Console = false

	clock := scenario.NewClock(time.Now().Unix())
	e, err := engine.New(ctx, cfg, engine.WithClock(clock.Now))
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Close(closeCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if cfg.Metrics.Enabled {
		if _, err := e.ServeMetrics(cfg.Metrics.Listen); err != nil {
			log.Fatalf("Failed to serve metrics: %v", err)
		}
	}

	// леджер живет в памяти, сохраненные кривые только показываются в журнале
	if persisted, err := e.Program.Restore(ctx); err != nil {
		e.Logger.Warn("Failed to read persisted curves", zap.Error(err))
	} else {
		e.Logger.Info("Persisted curves found", zap.Int("count", len(persisted)))
	}

	trader := solana.NewWallet().PublicKey()
	if err := e.Ledger.Airdrop(trader, traderAirdrop); err != nil {
		log.Fatalf("Failed to fund trader: %v", err)
	}
	if len(e.Program.Curves()) == 0 {
		if _, err := e.Program.CreateCurve(ctx, settlement.CreateParams{
			Creator:     trader,
			Name:        "Demo",
			Symbol:      "DEMO",
			Whitelisted: true,
		}); err != nil {
			log.Fatalf("Failed to launch demo curve: %v", err)
		}
	}

	feed := ui.NewFeed(e.Bus, 256)
	defer feed.Close()

	model := ui.NewModel(ui.Deps{
		Program: e.Program,
		Quotes:  e.Quotes,
		Ledger:  e.Ledger,
		Clock:   clock.Now,
		Feed:    feed,
		Trader:  trader,
		Advance: func(seconds int64) { clock.Advance(seconds) },
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Printf("TUI error: %v", err)
	}
}
