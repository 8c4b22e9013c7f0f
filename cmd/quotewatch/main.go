package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/avollmer/tastygo/internal/api"
	"github.com/avollmer/tastygo/internal/auth"
	"github.com/avollmer/tastygo/internal/config"
	"github.com/avollmer/tastygo/internal/model"
	"github.com/avollmer/tastygo/internal/quote"
	"github.com/avollmer/tastygo/internal/stream"
	"github.com/avollmer/tastygo/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/trader.local.yaml", "path to config file")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols to watch")
	greeks := flag.Bool("greeks", false, "also subscribe to Greeks for each symbol")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting quotewatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if *symbolsFlag == "" {
		logger.Error("no symbols given, use -symbols AAPL,SPY")
		os.Exit(1)
	}
	var symbols []model.Symbol
	for _, raw := range strings.Split(*symbolsFlag, ",") {
		sym, err := model.NewSymbol(raw)
		if err != nil {
			logger.Error("bad symbol", "symbol", raw, "error", err)
			os.Exit(1)
		}
		symbols = append(symbols, sym)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"environment", cfg.Environment,
		"api_url", cfg.API.BaseURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Establish a brokerage session
	session, err := auth.Login(ctx, cfg.API.BaseURL, auth.Credentials{
		Login:      os.Getenv("TASTY_LOGIN"),
		Password:   os.Getenv("TASTY_PASSWORD"),
		RememberMe: true,
	}, auth.WithLogger(logger))
	if err != nil {
		logger.Error("login failed", "error", err)
		os.Exit(1)
	}

	apiClient := api.NewClient(
		cfg.API.BaseURL,
		session,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
	)

	// Fetch the streamer token and endpoint
	tokens, err := apiClient.QuoteTokens(ctx)
	if err != nil {
		logger.Error("failed to fetch quote tokens", "error", err)
		os.Exit(1)
	}

	streamURL := cfg.Streamer.URL
	if streamURL == "" {
		streamURL = tokens.DxlinkURL
	}

	streamCfg := stream.DefaultSessionConfig()
	streamCfg.URL = streamURL
	streamCfg.Token = tokens.Token
	streamCfg.TokenFunc = func() string {
		fresh, err := apiClient.QuoteTokens(ctx)
		if err != nil {
			logger.Warn("quote token refresh failed, reusing last token", "error", err)
			return tokens.Token
		}
		tokens = fresh
		return fresh.Token
	}
	streamCfg.ConnectTimeout = cfg.Streamer.ConnectTimeout
	streamCfg.AuthTimeout = cfg.Streamer.AuthTimeout
	streamCfg.KeepaliveInterval = cfg.Streamer.KeepaliveInterval
	streamCfg.KeepaliveTimeout = cfg.Streamer.KeepaliveTimeout
	streamCfg.ReconnectBaseDelay = cfg.Streamer.ReconnectBaseDelay
	streamCfg.ReconnectMaxDelay = cfg.Streamer.ReconnectMaxDelay
	streamCfg.MaxReconnectAttempts = cfg.Streamer.MaxReconnectAttempts
	streamCfg.BufferSize = cfg.Streamer.BufferSize

	registry := stream.NewRegistry(cfg.Streamer.DeliveryBufferSize, logger)
	cache := quote.NewCache()
	streamSession := stream.NewSession(streamCfg, registry, cache, logger)

	// Subscribe before starting so the first live state replays the set
	kinds := []model.EventKind{model.KindQuote}
	if *greeks {
		kinds = append(kinds, model.KindGreeks)
	}
	var handles []*stream.Handle
	for _, sym := range symbols {
		for _, kind := range kinds {
			handles = append(handles, registry.Subscribe(sym, kind))
		}
	}

	streamSession.Start(ctx)
	logger.Info("streaming session started", "url", streamURL, "symbols", len(symbols))

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h *stream.Handle) {
			defer wg.Done()
			for ev := range h.Events() {
				printEvent(ev)
			}
		}(h)
	}

	<-ctx.Done()
	streamSession.Shutdown()
	wg.Wait()

	if err := streamSession.Err(); err != nil {
		logger.Error("stream ended abnormally", "error", err)
		os.Exit(1)
	}
	logger.Info("quotewatch stopped")
}

func printEvent(ev model.MarketEvent) {
	ts := time.UnixMilli(ev.Timestamp()).Format("15:04:05.000")
	switch e := ev.(type) {
	case model.Quote:
		fmt.Printf("%s  %-20s bid %s x %s  ask %s x %s\n",
			ts, e.EventSymbol(), e.BidPrice, e.BidSize, e.AskPrice, e.AskSize)
	case model.Greeks:
		fmt.Printf("%s  %-20s iv %s  delta %s  theta %s\n",
			ts, e.EventSymbol(), e.Volatility, e.Delta, e.Theta)
	default:
		fmt.Printf("%s  %-20s %s\n", ts, ev.EventSymbol(), ev.Kind())
	}
}
