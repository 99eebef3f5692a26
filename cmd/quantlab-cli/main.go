package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quantlab-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version      Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  backtest     Score a price/signal file or run a strategy on it\n")
		fmt.Fprintf(os.Stderr, "  coint        Run a cointegration test on a pair file\n")
		fmt.Fprintf(os.Stderr, "  prices       Fetch Yahoo closes through a quantlab server\n")
		fmt.Fprintf(os.Stderr, "  bars         Fetch Alpaca bars through a quantlab server\n")
		fmt.Fprintf(os.Stderr, "  strategies   List available strategies\n")
		fmt.Fprintf(os.Stderr, "\nRun 'quantlab-cli <command> -h' for command options.\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("quantlab-cli %s\n", version)
	case "backtest":
		err = runBacktest(ctx, args, os.Stdout)
	case "coint":
		err = runCoint(ctx, args, os.Stdout)
	case "prices":
		err = runPrices(ctx, args, os.Stdout)
	case "bars":
		err = runBars(ctx, args, os.Stdout)
	case "strategies":
		err = runStrategies(ctx, args, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "quantlab-cli %s: %v\n", os.Args[1], err)
		cancel()
		os.Exit(1)
	}
}
