package model

import "github.com/shopspring/decimal"

// MarketEvent is the closed set of decoded streaming events. Payloads are
// decoded into one of the concrete variants at the demux boundary; untyped
// payloads never travel past internal/stream.
type MarketEvent interface {
	EventSymbol() Symbol
	Kind() EventKind

	// Timestamp is the event time in milliseconds. Within a (symbol, kind)
	// stream it orders events for staleness checks.
	Timestamp() int64

	marketEvent()
}

// EventHeader carries the fields common to every event variant.
type EventHeader struct {
	Symbol Symbol
	Time   int64
}

func (h EventHeader) EventSymbol() Symbol { return h.Symbol }
func (h EventHeader) Timestamp() int64    { return h.Time }
func (h EventHeader) marketEvent()        {}

// Quote is the current best bid/ask for a symbol.
type Quote struct {
	EventHeader
	BidPrice decimal.Decimal
	AskPrice decimal.Decimal
	BidSize  decimal.Decimal
	AskSize  decimal.Decimal
}

func (Quote) Kind() EventKind { return KindQuote }

// Trade is the last trade for a symbol.
type Trade struct {
	EventHeader
	Price     decimal.Decimal
	Size      decimal.Decimal
	DayVolume decimal.Decimal
}

func (Trade) Kind() EventKind { return KindTrade }

// Greeks carries option sensitivities and implied volatility.
type Greeks struct {
	EventHeader
	Price      decimal.Decimal // theoretical option price
	Volatility decimal.Decimal
	Delta      decimal.Decimal
	Gamma      decimal.Decimal
	Theta      decimal.Decimal
	Rho        decimal.Decimal
	Vega       decimal.Decimal
}

func (Greeks) Kind() EventKind { return KindGreeks }

// Profile is static instrument reference data.
type Profile struct {
	EventHeader
	Description     string
	TradingStatus   string
	HighLimitPrice  decimal.Decimal
	LowLimitPrice   decimal.Decimal
	High52WeekPrice decimal.Decimal
	Low52WeekPrice  decimal.Decimal
}

func (Profile) Kind() EventKind { return KindProfile }

// Summary is the daily OHLC summary for a symbol.
type Summary struct {
	EventHeader
	DayOpenPrice      decimal.Decimal
	DayHighPrice      decimal.Decimal
	DayLowPrice       decimal.Decimal
	PrevDayClosePrice decimal.Decimal
	OpenInterest      decimal.Decimal
}

func (Summary) Kind() EventKind { return KindSummary }
