package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leapsim/internal/config"
	"leapsim/internal/marketdata"
	"leapsim/internal/store"
	"leapsim/internal/util"
)

// leapsim-calendar prefetches and inspects the trading-day cache so
// backtest runs never block on calendar lookups.
func main() {
	cfgPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	startYear := flag.Int("start-year", 0, "first year to fetch")
	endYear := flag.Int("end-year", 0, "last year to fetch")
	show := flag.Bool("show", false, "print the trading days of each year")
	flag.Parse()

	if *cfgPath == "" {
		*cfgPath = os.Getenv("LEAPSIM_CONFIG")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *startYear != 0 {
		cfg.Backtest.StartYear = *startYear
	}
	if *endYear != 0 {
		cfg.Backtest.EndYear = *endYear
	}
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

	calendar := marketdata.NewCalendar(cfg.Backtest.Symbol,
		marketdata.NewAlpacaCalendar(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL),
		cache)

	start := time.Now()
	for year := cfg.Backtest.StartYear; year <= cfg.Backtest.EndYear; year++ {
		days, err := calendar.TradingDays(ctx, year)
		if err != nil {
			log.Fatalf("fetching %d: %v", year, err)
		}
		first, _ := calendar.FirstTradingDay(ctx, year)
		last, _ := calendar.LastTradingDay(ctx, year)
		fmt.Printf("%d: %d trading days, %s .. %s\n",
			year, len(days), first.Format("2006-01-02"), last.Format("2006-01-02"))
		if *show {
			for _, d := range days {
				fmt.Println("  " + d.Format("2006-01-02"))
			}
		}
	}
	logger.Info("calendar cache ready",
		"years", cfg.Backtest.EndYear-cfg.Backtest.StartYear+1,
		"elapsed", time.Since(start).Round(time.Millisecond))
}
