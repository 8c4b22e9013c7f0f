package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/avollmer/tastygo/internal/api"
	"github.com/avollmer/tastygo/internal/auth"
	"github.com/avollmer/tastygo/internal/config"
	"github.com/avollmer/tastygo/internal/lifecycle"
	"github.com/avollmer/tastygo/internal/model"
	"github.com/avollmer/tastygo/internal/order"
	"github.com/avollmer/tastygo/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/trader.local.yaml", "path to config file")
	account := flag.String("account", "", "account number (default: first account)")
	symbol := flag.String("symbol", "", "equity symbol")
	quantity := flag.Int64("quantity", 0, "number of shares")
	price := flag.String("price", "", "limit price")
	action := flag.String("action", "Buy to Open", "order action")
	tif := flag.String("tif", "Day", "time in force")
	submit := flag.Bool("submit", false, "place the order after the dry run")
	cancelID := flag.Int64("cancel", 0, "cancel the given live order ID instead of building one")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ordertool",
		"version", version.Version,
		"commit", version.Commit,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

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

	accountNumber := *account
	if accountNumber == "" {
		accounts, err := apiClient.Accounts(ctx)
		if err != nil {
			logger.Error("failed to list accounts", "error", err)
			os.Exit(1)
		}
		if len(accounts) == 0 {
			logger.Error("no accounts available")
			os.Exit(1)
		}
		accountNumber = accounts[0].AccountNumber
	}
	accountClient := apiClient.ForAccount(accountNumber)
	logger.Info("using account", "account", accountNumber)

	if *cancelID != 0 {
		cancelOrder(ctx, accountClient, api.OrderID(*cancelID), logger)
		return
	}

	if *symbol == "" || *quantity == 0 || *price == "" {
		logger.Error("need -symbol, -quantity and -price to build an order")
		os.Exit(1)
	}

	o, err := buildOrder(cfg, *symbol, *quantity, *price, *action, *tif)
	if err != nil {
		logger.Error("failed to build order", "error", err)
		os.Exit(1)
	}

	// Dry-run first: show the brokerage's projection before committing.
	result, err := accountClient.DryRun(ctx, o)
	if err != nil {
		logger.Error("dry run failed", "error", err)
		os.Exit(1)
	}
	printProjection(result)

	if !*submit {
		fmt.Println("\ndry run only; re-run with -submit to place the order")
		return
	}

	controller := lifecycle.NewController(accountClient, logger)
	live, err := controller.Submit(ctx, o)
	if err != nil {
		logger.Error("order submission failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("\norder placed: id=%d status=%s\n", live.ID, live.Status)
}

func buildOrder(cfg *config.Config, symbol string, quantity int64, price, action, tif string) (order.Order, error) {
	sym, err := model.NewSymbol(symbol)
	if err != nil {
		return order.Order{}, err
	}
	limit, err := decimal.NewFromString(price)
	if err != nil {
		return order.Order{}, fmt.Errorf("parse price: %w", err)
	}

	b := order.NewBuilder().
		TimeInForce(order.TimeInForce(tif)).
		Type(order.TypeLimit).
		Price(limit).
		PriceEffect(priceEffectFor(order.Action(action))).
		AddLeg(order.Leg{
			InstrumentType: order.InstrumentEquity,
			Symbol:         sym,
			Quantity:       quantity,
			Action:         order.Action(action),
		})

	if !cfg.Orders.AllowPlainEquityActions {
		b = b.WithActionPolicy(order.StrictActionPolicy)
	}

	return b.Build()
}

func priceEffectFor(a order.Action) order.PriceEffect {
	switch a {
	case order.ActionSellToOpen, order.ActionSellToClose, order.ActionSell:
		return order.EffectCredit
	default:
		return order.EffectDebit
	}
}

func cancelOrder(ctx context.Context, ac *api.AccountClient, id api.OrderID, logger *slog.Logger) {
	record, err := ac.CancelOrder(ctx, id)
	if err != nil {
		logger.Error("cancel failed", "order_id", id, "error", err)
		os.Exit(1)
	}
	fmt.Printf("cancel requested: id=%d status=%s\n", record.ID, record.Status)
}

func printProjection(result *api.DryRunResult) {
	fmt.Printf("dry run: status=%s\n", result.Order.Status)
	for _, leg := range result.Order.Legs {
		fmt.Printf("  leg: %s %d %s (%s)\n", leg.Action, leg.Quantity, leg.Symbol, leg.InstrumentType)
	}
	fmt.Printf("  buying power: %s %s (current %s)\n",
		result.BuyingPowerEffect.ChangeInBuyingPower,
		result.BuyingPowerEffect.ChangeInBuyingPowerEffect,
		result.BuyingPowerEffect.CurrentBuyingPower,
	)
	fmt.Printf("  fees: %s %s\n", result.FeeCalculation.TotalFees, result.FeeCalculation.TotalFeesEffect)
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s (%s)\n", w.Message, w.Code)
	}
}
