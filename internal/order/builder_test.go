package order

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avollmer/tastygo/internal/model"
)

func equityLeg(qty int64) Leg {
	return Leg{
		InstrumentType: InstrumentEquity,
		Symbol:         model.MustSymbol("AAPL"),
		Quantity:       qty,
		Action:         ActionBuyToOpen,
	}
}

func TestBuild_LimitOrder(t *testing.T) {
	o, err := NewBuilder().
		TimeInForce(TIFGTC).
		Type(TypeLimit).
		Price(decimal.RequireFromString("170.00")).
		PriceEffect(EffectDebit).
		AddLeg(equityLeg(1)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, TIFGTC, o.TimeInForce())
	assert.Equal(t, TypeLimit, o.Type())
	assert.Equal(t, EffectDebit, o.PriceEffect())

	p, ok := o.Price()
	require.True(t, ok)
	assert.True(t, p.Equal(decimal.RequireFromString("170.00")))

	legs := o.Legs()
	require.Len(t, legs, 1)
	assert.Equal(t, model.Symbol("AAPL"), legs[0].Symbol)
	assert.Equal(t, int64(1), legs[0].Quantity)
	assert.Equal(t, ActionBuyToOpen, legs[0].Action)
}

func TestBuild_FirstViolationWins(t *testing.T) {
	cases := []struct {
		name      string
		build     func() *Builder
		wantField string
	}{
		{
			name:      "missing time in force",
			build:     func() *Builder { return NewBuilder().Type(TypeMarket).AddLeg(equityLeg(1)) },
			wantField: "time-in-force",
		},
		{
			name:      "missing order type",
			build:     func() *Builder { return NewBuilder().TimeInForce(TIFDay).AddLeg(equityLeg(1)) },
			wantField: "order-type",
		},
		{
			name:      "no legs",
			build:     func() *Builder { return NewBuilder().TimeInForce(TIFDay).Type(TypeMarket) },
			wantField: "legs",
		},
		{
			name: "non-positive quantity",
			build: func() *Builder {
				return NewBuilder().TimeInForce(TIFDay).Type(TypeMarket).AddLeg(equityLeg(0))
			},
			wantField: "legs[0].quantity",
		},
		{
			name: "price required for limit",
			build: func() *Builder {
				return NewBuilder().TimeInForce(TIFGTC).Type(TypeLimit).
					PriceEffect(EffectDebit).AddLeg(equityLeg(1))
			},
			wantField: "price",
		},
		{
			name: "price forbidden for market",
			build: func() *Builder {
				return NewBuilder().TimeInForce(TIFDay).Type(TypeMarket).
					Price(decimal.NewFromInt(10)).AddLeg(equityLeg(1))
			},
			wantField: "price",
		},
		{
			name: "priced order needs debit or credit",
			build: func() *Builder {
				return NewBuilder().TimeInForce(TIFGTC).Type(TypeLimit).
					Price(decimal.NewFromInt(10)).AddLeg(equityLeg(1))
			},
			wantField: "price-effect",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build().Build()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantField, verr.Field)
		})
	}
}

func TestBuild_ActionPolicy(t *testing.T) {
	optionLeg := Leg{
		InstrumentType: InstrumentEquityOption,
		Symbol:         model.MustSymbol("AAPL  260116C00200000"),
		Quantity:       1,
		Action:         ActionBuy, // options require open/close actions
	}

	_, err := NewBuilder().
		TimeInForce(TIFDay).
		Type(TypeMarket).
		AddLeg(optionLeg).
		Build()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "legs[0].action", verr.Field)

	// Same leg with an explicit open action passes.
	optionLeg.Action = ActionBuyToOpen
	_, err = NewBuilder().
		TimeInForce(TIFDay).
		Type(TypeMarket).
		AddLeg(optionLeg).
		Build()
	require.NoError(t, err)
}

func TestBuild_StrictPolicy(t *testing.T) {
	leg := equityLeg(100)
	leg.Action = ActionBuy

	_, err := NewBuilder().
		WithActionPolicy(StrictActionPolicy).
		TimeInForce(TIFDay).
		Type(TypeMarket).
		AddLeg(leg).
		Build()
	require.Error(t, err, "plain Buy rejected under strict policy")

	leg.Action = ActionBuyToOpen
	_, err = NewBuilder().
		WithActionPolicy(StrictActionPolicy).
		TimeInForce(TIFDay).
		Type(TypeMarket).
		AddLeg(leg).
		Build()
	require.NoError(t, err)
}

func TestBuild_CustomPolicy(t *testing.T) {
	denyAll := func(InstrumentType, Action) bool { return false }

	_, err := NewBuilder().
		WithActionPolicy(denyAll).
		TimeInForce(TIFDay).
		Type(TypeMarket).
		AddLeg(equityLeg(1)).
		Build()
	require.Error(t, err)
}

func TestOrder_LegsCopied(t *testing.T) {
	o, err := NewBuilder().
		TimeInForce(TIFDay).
		Type(TypeMarket).
		AddLeg(equityLeg(1)).
		Build()
	require.NoError(t, err)

	legs := o.Legs()
	legs[0].Quantity = 99

	assert.Equal(t, int64(1), o.Legs()[0].Quantity, "mutating the returned slice must not affect the order")
}

func TestOrder_MarshalJSON(t *testing.T) {
	o, err := NewBuilder().
		TimeInForce(TIFGTC).
		Type(TypeLimit).
		Price(decimal.RequireFromString("170.00")).
		PriceEffect(EffectDebit).
		AddLeg(equityLeg(1)).
		Build()
	require.NoError(t, err)

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	assert.Equal(t, "GTC", wire["time-in-force"])
	assert.Equal(t, "Limit", wire["order-type"])
	assert.Equal(t, "170", wire["price"])
	assert.Equal(t, "Debit", wire["price-effect"])

	legs, ok := wire["legs"].([]any)
	require.True(t, ok)
	require.Len(t, legs, 1)
	leg := legs[0].(map[string]any)
	assert.Equal(t, "Equity", leg["instrument-type"])
	assert.Equal(t, "AAPL", leg["symbol"])
	assert.Equal(t, "Buy to Open", leg["action"])
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusFilled, StatusCancelled, StatusExpired, StatusRejected, StatusReplaced, StatusRemoved}
	for _, s := range terminal {
		assert.Truef(t, s.IsTerminal(), "%s should be terminal", s)
	}
	open := []Status{StatusReceived, StatusRouted, StatusLive, StatusPartiallyFilled, StatusCancelRequested}
	for _, s := range open {
		assert.Falsef(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}
