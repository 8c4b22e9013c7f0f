package api

import (
	"github.com/shopspring/decimal"

	"github.com/avollmer/tastygo/internal/model"
	"github.com/avollmer/tastygo/internal/order"
)

// items is the envelope for list responses: {"data": {"items": [...]}}.
type items[T any] struct {
	Items []T `json:"items"`
}

// Account describes a brokerage account the session can trade.
type Account struct {
	AccountNumber       string `json:"account-number"`
	Nickname            string `json:"nickname"`
	AccountTypeName     string `json:"account-type-name"`
	MarginOrCash        string `json:"margin-or-cash"`
	DayTraderStatus     bool   `json:"day-trader-status"`
	IsClosed            bool   `json:"is-closed"`
	AuthorityLevel      string `json:"authority-level"`
	InvestmentObjective string `json:"investment-objective"`
}

// accountItem wraps Account in the /customers/me/accounts listing.
type accountItem struct {
	Account        Account `json:"account"`
	AuthorityLevel string  `json:"authority-level"`
}

// Balance is an account balance snapshot.
type Balance struct {
	AccountNumber           string          `json:"account-number"`
	CashBalance             decimal.Decimal `json:"cash-balance"`
	NetLiquidatingValue     decimal.Decimal `json:"net-liquidating-value"`
	EquityBuyingPower       decimal.Decimal `json:"equity-buying-power"`
	DerivativeBuyingPower   decimal.Decimal `json:"derivative-buying-power"`
	DayTradingBuyingPower   decimal.Decimal `json:"day-trading-buying-power"`
	CashAvailableToWithdraw decimal.Decimal `json:"cash-available-to-withdraw"`
	MaintenanceRequirement  decimal.Decimal `json:"maintenance-requirement"`
	PendingCash             decimal.Decimal `json:"pending-cash"`
}

// Position is one open position in an account.
type Position struct {
	AccountNumber     string               `json:"account-number"`
	Symbol            model.Symbol         `json:"symbol"`
	InstrumentType    order.InstrumentType `json:"instrument-type"`
	UnderlyingSymbol  model.Symbol         `json:"underlying-symbol"`
	Quantity          decimal.Decimal      `json:"quantity"`
	QuantityDirection string               `json:"quantity-direction"` // "Long" / "Short"
	ClosePrice        decimal.Decimal      `json:"close-price"`
	AverageOpenPrice  decimal.Decimal      `json:"average-open-price"`
	Multiplier        decimal.Decimal      `json:"multiplier"`
}

// EquityInstrument is the instrument record for an equity symbol.
type EquityInstrument struct {
	Symbol         model.Symbol `json:"symbol"`
	StreamerSymbol string       `json:"streamer-symbol"`
	Description    string       `json:"description"`
	Active         bool         `json:"active"`
	IsIndex        bool         `json:"is-index"`
}

// OptionInstrument is the instrument record for an equity option symbol.
type OptionInstrument struct {
	Symbol           model.Symbol    `json:"symbol"`
	StreamerSymbol   string          `json:"streamer-symbol"`
	UnderlyingSymbol model.Symbol    `json:"underlying-symbol"`
	StrikePrice      decimal.Decimal `json:"strike-price"`
	OptionType       string          `json:"option-type"` // "C" / "P"
	ExpirationDate   string          `json:"expiration-date"`
	Active           bool            `json:"active"`
}

// QuoteTokens carries the streamer URL and token for the quote feed.
type QuoteTokens struct {
	Token     string `json:"token"`
	DxlinkURL string `json:"dxlink-url"`
	Level     string `json:"level"`
}

// OrderID identifies a brokerage order.
type OrderID int64

// LiveOrderRecord is the brokerage's view of a submitted order.
type LiveOrderRecord struct {
	ID               OrderID           `json:"id"`
	AccountNumber    string            `json:"account-number"`
	TimeInForce      order.TimeInForce `json:"time-in-force"`
	OrderType        order.Type        `json:"order-type"`
	Size             int64             `json:"size"`
	UnderlyingSymbol model.Symbol      `json:"underlying-symbol"`
	Price            decimal.Decimal   `json:"price"`
	PriceEffect      order.PriceEffect `json:"price-effect"`
	Status           order.Status      `json:"status"`
	Cancellable      bool              `json:"cancellable"`
	Editable         bool              `json:"editable"`
	Edited           bool              `json:"edited"`
	Legs             []OrderLegRecord  `json:"legs"`
}

// OrderLegRecord is one leg of a live or dry-run order as echoed back.
type OrderLegRecord struct {
	InstrumentType    order.InstrumentType `json:"instrument-type"`
	Symbol            model.Symbol         `json:"symbol"`
	Quantity          int64                `json:"quantity"`
	RemainingQuantity int64                `json:"remaining-quantity"`
	Action            order.Action         `json:"action"`
	Fills             []FillRecord         `json:"fills"`
}

// FillRecord is one execution against a leg.
type FillRecord struct {
	Quantity         int64           `json:"quantity"`
	FillPrice        decimal.Decimal `json:"fill-price"`
	FilledAt         string          `json:"filled-at"`
	DestinationVenue string          `json:"destination-venue"`
}

// DryRunOrder echoes the submitted order with brokerage-derived fields.
// There is no order ID: nothing was committed.
type DryRunOrder struct {
	AccountNumber    string            `json:"account-number"`
	TimeInForce      order.TimeInForce `json:"time-in-force"`
	OrderType        order.Type        `json:"order-type"`
	Size             int64             `json:"size"`
	UnderlyingSymbol model.Symbol      `json:"underlying-symbol"`
	Price            decimal.Decimal   `json:"price"`
	PriceEffect      order.PriceEffect `json:"price-effect"`
	Status           order.Status      `json:"status"`
	Cancellable      bool              `json:"cancellable"`
	Editable         bool              `json:"editable"`
	Edited           bool              `json:"edited"`
	Legs             []OrderLegRecord  `json:"legs"`
}

// BuyingPowerEffect is the brokerage's margin/buying-power projection.
// Surfaced verbatim; never recomputed locally.
type BuyingPowerEffect struct {
	ChangeInMarginRequirement       decimal.Decimal   `json:"change-in-margin-requirement"`
	ChangeInMarginRequirementEffect order.PriceEffect `json:"change-in-margin-requirement-effect"`
	ChangeInBuyingPower             decimal.Decimal   `json:"change-in-buying-power"`
	ChangeInBuyingPowerEffect       order.PriceEffect `json:"change-in-buying-power-effect"`
	CurrentBuyingPower              decimal.Decimal   `json:"current-buying-power"`
	CurrentBuyingPowerEffect        order.PriceEffect `json:"current-buying-power-effect"`
	Impact                          decimal.Decimal   `json:"impact"`
	Effect                          order.PriceEffect `json:"effect"`
}

// FeeCalculation is the brokerage's fee projection.
type FeeCalculation struct {
	TotalFees       decimal.Decimal   `json:"total-fees"`
	TotalFeesEffect order.PriceEffect `json:"total-fees-effect"`
}

// Warning is a non-fatal advisory attached to an order response.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DryRunResult is the non-committing evaluation of an order.
type DryRunResult struct {
	Order             DryRunOrder       `json:"order"`
	Warnings          []Warning         `json:"warnings"`
	BuyingPowerEffect BuyingPowerEffect `json:"buying-power-effect"`
	FeeCalculation    FeeCalculation    `json:"fee-calculation"`
}

// PlacedOrder is the response to a live submission or replacement.
type PlacedOrder struct {
	Order             LiveOrderRecord   `json:"order"`
	Warnings          []Warning         `json:"warnings"`
	BuyingPowerEffect BuyingPowerEffect `json:"buying-power-effect"`
	FeeCalculation    FeeCalculation    `json:"fee-calculation"`
}
