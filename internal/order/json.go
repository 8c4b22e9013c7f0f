package order

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// orderWire is the kebab-case shape the brokerage expects on submission.
type orderWire struct {
	TimeInForce TimeInForce      `json:"time-in-force"`
	OrderType   Type             `json:"order-type"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	PriceEffect PriceEffect      `json:"price-effect"`
	Legs        []Leg            `json:"legs"`
}

// MarshalJSON serializes the order in the brokerage wire format.
func (o Order) MarshalJSON() ([]byte, error) {
	w := orderWire{
		TimeInForce: o.tif,
		OrderType:   o.typ,
		PriceEffect: o.effect,
		Legs:        o.legs,
	}
	if o.priceSet {
		p := o.price
		w.Price = &p
	}
	return json.Marshal(w)
}
