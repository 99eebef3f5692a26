package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"quantlab/internal/backtest"
	"quantlab/internal/coint"
	"quantlab/internal/domain"
	"quantlab/internal/quotes"
	"quantlab/internal/store"
	"quantlab/internal/strategy"
	"quantlab/internal/strategy/builtins"
	"quantlab/pkg/quantlab"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBacktester() *strategy.Backtester {
	reg := strategy.NewRegistry()
	builtins.Register(reg)
	return strategy.NewBacktester(reg)
}

// strategyParams collects the window flags that were explicitly set, so
// unset ones fall back to the strategy's defaults.
func strategyParams(fs *flag.FlagSet, short, long int) strategy.Params {
	params := strategy.Params{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "short":
			params["short"] = short
		case "long":
			params["long"] = long
		}
	})
	return params
}

func runBacktest(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	file := fs.String("file", "", "input file (.parquet or .json)")
	name := fs.String("strategy", "", "strategy name; signals from the file are used when empty")
	short := fs.Int("short", 5, "short SMA window (sma-cross)")
	long := fs.Int("long", 20, "long SMA window (sma-cross)")
	server := fs.String("server", "", "quantlab server URL; computes locally when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	prices, signals, err := store.LoadSeries(*file)
	if err != nil {
		return err
	}
	params := strategyParams(fs, *short, *long)

	var res backtest.Result
	switch {
	case *server != "" && *name != "":
		r, err := quantlab.NewClient(*server).BacktestStrategy(ctx, prices, *name, params)
		if err != nil {
			return err
		}
		res = backtest.Result{PnL: r.PnL, Sharpe: r.Sharpe, MaxDrawdown: r.MaxDrawdown}
	case *server != "":
		r, err := quantlab.NewClient(*server).Backtest(ctx, prices, signals)
		if err != nil {
			return err
		}
		res = backtest.Result{PnL: r.PnL, Sharpe: r.Sharpe, MaxDrawdown: r.MaxDrawdown}
	case *name != "":
		res, err = newBacktester().Run(*name, params, prices)
	default:
		res, err = backtest.Run(prices, signals)
	}
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}

// cointOutput mirrors the server's cointegration response.
type cointOutput struct {
	Score      *float64 `json:"score"`
	PValue     float64  `json:"pvalue"`
	Lags       int      `json:"lags"`
	NObs       int      `json:"nobs"`
	HedgeRatio float64  `json:"hedge_ratio"`
	Collinear  bool     `json:"collinear"`
}

func runCoint(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("coint", flag.ContinueOnError)
	file := fs.String("file", "", "pair file (.parquet or .json)")
	server := fs.String("server", "", "quantlab server URL; computes locally when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	x, y, err := store.LoadPair(*file)
	if err != nil {
		return err
	}

	if *server != "" {
		r, err := quantlab.NewClient(*server).Cointegration(ctx, x, y)
		if err != nil {
			return err
		}
		return writeJSON(out, r)
	}

	r, err := coint.Test(x, y)
	if err != nil {
		return err
	}
	res := cointOutput{
		PValue:     r.PValue,
		Lags:       r.Lags,
		NObs:       r.NObs,
		HedgeRatio: r.HedgeRatio,
		Collinear:  r.Collinear,
	}
	if !r.Collinear {
		res.Score = &r.Score
	}
	return writeJSON(out, res)
}

func runPrices(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("prices", flag.ContinueOnError)
	server := fs.String("server", "http://localhost:8000", "quantlab server URL")
	symbol := fs.String("symbol", "", "ticker symbol")
	rng := fs.String("range", "", "chart range (server default 3y)")
	interval := fs.String("interval", "", "bar interval (server default 1d)")
	outFile := fs.String("out", "", "append closes to this .parquet series file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *symbol == "" {
		return errors.New("-symbol is required")
	}

	raw, err := quantlab.NewClient(*server).YahooPrices(ctx, *symbol, *rng, *interval)
	if err != nil {
		return err
	}
	points, err := quotes.ParseChart(raw)
	if err != nil {
		return err
	}

	if *outFile == "" {
		closes := make([]float64, len(points))
		for i, p := range points {
			closes[i] = p.Close
		}
		return writeJSON(out, map[string]any{"symbol": strings.ToUpper(*symbol), "prices": closes})
	}

	records := make([]store.SeriesRecord, len(points))
	for i, p := range points {
		if p.Time.IsZero() {
			return fmt.Errorf("chart point %d has no timestamp; cannot merge into %s", i, *outFile)
		}
		records[i] = store.SeriesRecord{Timestamp: p.Time.UnixMilli(), Price: p.Close}
	}
	if err := store.AppendSeries(*outFile, records); err != nil {
		return err
	}
	return writeJSON(out, map[string]any{"symbol": strings.ToUpper(*symbol), "rows": len(records), "file": *outFile})
}

func runBars(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bars", flag.ContinueOnError)
	server := fs.String("server", "http://localhost:8000", "quantlab server URL")
	symbol := fs.String("symbol", "", "ticker symbol")
	timeframe := fs.String("timeframe", "1Day", "1Min, 5Min, 15Min, 1Hour or 1Day")
	start := fs.String("start", "", "start date YYYY-MM-DD")
	end := fs.String("end", "", "end date YYYY-MM-DD")
	outFile := fs.String("out", "", "merge bars into this .parquet file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *symbol == "" {
		return errors.New("-symbol is required")
	}

	bars, err := quantlab.NewClient(*server).AlpacaBars(ctx, quantlab.BarsRequest{
		Symbol:    *symbol,
		Timeframe: *timeframe,
		Start:     *start,
		End:       *end,
	})
	if err != nil {
		return err
	}
	if *outFile == "" {
		return writeJSON(out, bars)
	}

	dbars := make([]domain.Bar, len(bars))
	for i, b := range bars {
		dbars[i] = domain.Bar(b)
	}
	if err := store.WriteBars(*outFile, dbars); err != nil {
		return err
	}
	return writeJSON(out, map[string]any{"symbol": strings.ToUpper(*symbol), "rows": len(dbars), "file": *outFile})
}

func runStrategies(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("strategies", flag.ContinueOnError)
	server := fs.String("server", "", "quantlab server URL; lists built-ins when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *server == "" {
		return writeJSON(out, map[string][]string{"strategies": newBacktester().Strategies()})
	}
	names, err := quantlab.NewClient(*server).Strategies(ctx)
	if err != nil {
		return fmt.Errorf("listing strategies: %w", err)
	}
	return writeJSON(out, map[string][]string{"strategies": names})
}
