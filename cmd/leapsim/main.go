package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leapsim/internal/backtest"
	"leapsim/internal/config"
	"leapsim/internal/domain"
	"leapsim/internal/marketdata"
	"leapsim/internal/report"
	"leapsim/internal/store"
	"leapsim/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	strategy := flag.String("strategy", "both", "annual, quarterly, or both")
	symbol := flag.String("symbol", "", "underlying root symbol")
	startYear := flag.Int("start-year", 0, "first backtest year")
	endYear := flag.Int("end-year", 0, "last backtest year")
	capital := flag.Float64("capital", 0, "starting capital per year")
	utilization := flag.Float64("utilization", 0, "fraction of capital to deploy (0,1]")
	commission := flag.Float64("commission", -1, "commission per contract")
	maxContracts := flag.Int("max-contracts", 0, "liquidity cap per cycle")
	targetMonths := flag.Int("target-months", 0, "quarterly roll horizon in months")
	moneyness := flag.Float64("moneyness", 0, "ITM bound: strike <= spot * moneyness")
	asOf := flag.String("as-of", "", "clamp exits to this date (YYYY-MM-DD)")
	verbose := flag.Bool("v", false, "print the per-trade log")
	flag.Parse()

	if *cfgPath == "" {
		*cfgPath = os.Getenv("LEAPSIM_CONFIG")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg, *symbol, *startYear, *endYear, *capital, *utilization,
		*commission, *maxContracts, *targetMonths, *moneyness, *asOf)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cache, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open calendar cache: %v", err)
	}
	defer cache.Close()

	sym := cfg.Backtest.Symbol
	calendar := marketdata.NewCalendar(sym,
		marketdata.NewAlpacaCalendar(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL),
		cache)
	resolver := marketdata.NewThetaDataClient(
		cfg.ThetaData.BaseURL,
		cfg.ThetaData.RateLimitPerMin,
		cfg.ThetaData.MaxAttempts,
		time.Duration(cfg.ThetaData.RetryBaseMS)*time.Millisecond)
	spots := marketdata.NewAlpacaData(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)

	driver := &backtest.Driver{
		Calendar: calendar,
		Runner: &backtest.CycleRunner{
			Spots:    spots,
			Resolver: resolver,
			Splits:   cfg.SplitEvents(sym),
			Symbol:   sym,
			Sizing: backtest.SizeParams{
				Utilization:  cfg.Backtest.Utilization,
				Commission:   cfg.Backtest.CommissionPerContract,
				MaxContracts: cfg.Backtest.LiquidityCap,
			},
			TargetMonths: cfg.Backtest.TargetMonths,
			Moneyness:    cfg.Backtest.Moneyness,
			Log:          logger,
		},
		Journal:         store.NewParquetJournal(cfg.Storage.DataDir),
		StartingCapital: cfg.Backtest.StartingCapital,
		AsOf:            cfg.AsOfDate(),
		Log:             logger,
	}

	logger.Info("starting backtest",
		"symbol", sym,
		"strategy", *strategy,
		"years", cfg.Backtest.EndYear-cfg.Backtest.StartYear+1,
		"capital", cfg.Backtest.StartingCapital)

	cmp := &backtest.Comparison{}
	switch *strategy {
	case "annual":
		cmp.Annual, err = driver.RunStrategy(ctx, domain.StrategyAnnual, cfg.Backtest.StartYear, cfg.Backtest.EndYear)
	case "quarterly":
		cmp.Quarterly, err = driver.RunStrategy(ctx, domain.StrategyQuarterly, cfg.Backtest.StartYear, cfg.Backtest.EndYear)
	case "both":
		cmp, err = driver.Compare(ctx, cfg.Backtest.StartYear, cfg.Backtest.EndYear)
	default:
		log.Fatalf("unknown strategy %q (want annual, quarterly, or both)", *strategy)
	}
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	rep := report.New(sym, cmp, cfg.Backtest.RiskFreeRate, *verbose)
	if err := rep.Write(os.Stdout); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
}

// applyFlags layers non-zero CLI flags over the loaded config.
func applyFlags(cfg *config.Config, symbol string, startYear, endYear int,
	capital, utilization, commission float64, maxContracts, targetMonths int,
	moneyness float64, asOf string) {
	if symbol != "" {
		cfg.Backtest.Symbol = symbol
	}
	if startYear != 0 {
		cfg.Backtest.StartYear = startYear
	}
	if endYear != 0 {
		cfg.Backtest.EndYear = endYear
	}
	if capital != 0 {
		cfg.Backtest.StartingCapital = capital
	}
	if utilization != 0 {
		cfg.Backtest.Utilization = utilization
	}
	if commission >= 0 {
		cfg.Backtest.CommissionPerContract = commission
	}
	if maxContracts != 0 {
		cfg.Backtest.LiquidityCap = maxContracts
	}
	if targetMonths != 0 {
		cfg.Backtest.TargetMonths = targetMonths
	}
	if moneyness != 0 {
		cfg.Backtest.Moneyness = moneyness
	}
	if asOf != "" {
		cfg.Backtest.AsOf = asOf
	}
}
