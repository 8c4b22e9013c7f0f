// Package order models brokerage orders and provides the validating
// builder that is the only way to construct one.
//
// Enum values are the exact strings the brokerage API uses on the wire,
// so serialization is direct.
package order

import (
	"github.com/shopspring/decimal"

	"github.com/avollmer/tastygo/internal/model"
)

// TimeInForce governs how long an order remains active.
type TimeInForce string

const (
	TIFDay    TimeInForce = "Day"
	TIFGTC    TimeInForce = "GTC"
	TIFGTD    TimeInForce = "GTD"
	TIFExt    TimeInForce = "Ext"
	TIFGTCExt TimeInForce = "GTC Ext"
	TIFIOC    TimeInForce = "IOC"
)

// Type is the brokerage order type.
type Type string

const (
	TypeLimit           Type = "Limit"
	TypeMarket          Type = "Market"
	TypeMarketableLimit Type = "Marketable Limit"
	TypeStop            Type = "Stop"
	TypeStopLimit       Type = "Stop Limit"
	TypeNotionalMarket  Type = "Notional Market"
)

// Priced reports whether this order type requires a price.
func (t Type) Priced() bool {
	switch t {
	case TypeLimit, TypeMarketableLimit, TypeStopLimit:
		return true
	default:
		return false
	}
}

// PriceEffect states whether the order price debits or credits the account.
type PriceEffect string

const (
	EffectDebit  PriceEffect = "Debit"
	EffectCredit PriceEffect = "Credit"
	EffectNone   PriceEffect = "None"
)

// Action is the direction of a single leg.
type Action string

const (
	ActionBuyToOpen   Action = "Buy to Open"
	ActionSellToOpen  Action = "Sell to Open"
	ActionBuyToClose  Action = "Buy to Close"
	ActionSellToClose Action = "Sell to Close"
	ActionBuy         Action = "Buy"
	ActionSell        Action = "Sell"
)

// InstrumentType classifies the instrument a leg trades.
type InstrumentType string

const (
	InstrumentEquity         InstrumentType = "Equity"
	InstrumentEquityOption   InstrumentType = "Equity Option"
	InstrumentFuture         InstrumentType = "Future"
	InstrumentFutureOption   InstrumentType = "Future Option"
	InstrumentCryptocurrency InstrumentType = "Cryptocurrency"
	InstrumentBond           InstrumentType = "Bond"
	InstrumentIndex          InstrumentType = "Index"
	InstrumentWarrant        InstrumentType = "Warrant"
)

// Status is the brokerage-reported lifecycle status of a live order.
type Status string

const (
	StatusReceived         Status = "Received"
	StatusRouted           Status = "Routed"
	StatusInFlight         Status = "In Flight"
	StatusLive             Status = "Live"
	StatusCancelRequested  Status = "Cancel Requested"
	StatusReplaceRequested Status = "Replace Requested"
	StatusContingent       Status = "Contingent"
	StatusPartiallyFilled  Status = "Partially Filled"
	StatusFilled           Status = "Filled"
	StatusCancelled        Status = "Cancelled"
	StatusExpired          Status = "Expired"
	StatusRejected         Status = "Rejected"
	StatusReplaced         Status = "Replaced"
	StatusRemoved          Status = "Removed"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusExpired, StatusRejected,
		StatusReplaced, StatusRemoved:
		return true
	default:
		return false
	}
}

// Leg is one instrument-level component of an order.
type Leg struct {
	InstrumentType InstrumentType `json:"instrument-type"`
	Symbol         model.Symbol   `json:"symbol"`
	Quantity       int64          `json:"quantity"`
	Action         Action         `json:"action"`
}

// Order is a validated, immutable order. Construct via Builder.Build.
type Order struct {
	tif      TimeInForce
	typ      Type
	price    decimal.Decimal
	priceSet bool
	effect   PriceEffect
	legs     []Leg
}

func (o Order) TimeInForce() TimeInForce { return o.tif }
func (o Order) Type() Type               { return o.typ }
func (o Order) PriceEffect() PriceEffect { return o.effect }

// Price returns the limit/stop price and whether one was set.
func (o Order) Price() (decimal.Decimal, bool) { return o.price, o.priceSet }

// Legs returns a copy of the ordered leg sequence.
func (o Order) Legs() []Leg {
	out := make([]Leg, len(o.legs))
	copy(out, o.legs)
	return out
}
