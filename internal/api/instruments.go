package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/avollmer/tastygo/internal/model"
	"github.com/avollmer/tastygo/internal/order"
)

// EquityInstrument fetches the instrument record for an equity symbol.
func (c *Client) EquityInstrument(ctx context.Context, symbol model.Symbol) (*EquityInstrument, error) {
	var inst EquityInstrument
	path := "/instruments/equities/" + url.PathEscape(symbol.String())
	if err := c.get(ctx, path, nil, &inst); err != nil {
		return nil, fmt.Errorf("get equity instrument %s: %w", symbol, err)
	}
	return &inst, nil
}

// OptionInstrument fetches the instrument record for an equity option symbol.
func (c *Client) OptionInstrument(ctx context.Context, symbol model.Symbol) (*OptionInstrument, error) {
	var inst OptionInstrument
	path := "/instruments/equity-options/" + url.PathEscape(symbol.String())
	if err := c.get(ctx, path, nil, &inst); err != nil {
		return nil, fmt.Errorf("get option instrument %s: %w", symbol, err)
	}
	return &inst, nil
}

// StreamerSymbol resolves the feed symbol the streamer uses for an
// instrument. Equity symbols usually match; options use the compact
// feed notation.
func (c *Client) StreamerSymbol(ctx context.Context, it order.InstrumentType, symbol model.Symbol) (string, error) {
	switch it {
	case order.InstrumentEquity:
		inst, err := c.EquityInstrument(ctx, symbol)
		if err != nil {
			return "", err
		}
		return inst.StreamerSymbol, nil
	case order.InstrumentEquityOption:
		inst, err := c.OptionInstrument(ctx, symbol)
		if err != nil {
			return "", err
		}
		return inst.StreamerSymbol, nil
	default:
		return "", fmt.Errorf("no streamer symbol lookup for instrument type %q", it)
	}
}

// QuoteTokens fetches the streamer URL and auth token for the quote feed.
func (c *Client) QuoteTokens(ctx context.Context) (*QuoteTokens, error) {
	var tokens QuoteTokens
	if err := c.get(ctx, "/api-quote-tokens", nil, &tokens); err != nil {
		return nil, fmt.Errorf("get quote tokens: %w", err)
	}
	return &tokens, nil
}
