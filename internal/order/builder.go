package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError identifies the first constraint an order description
// violates. It is returned before any network activity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order validation: %s: %s", e.Field, e.Reason)
}

// ActionPolicy decides which leg actions are allowed per instrument type.
// The brokerage's exact matrix is not published, so it is policy rather
// than a hard-coded rule.
type ActionPolicy func(InstrumentType, Action) bool

// DefaultActionPolicy requires open/close actions on option instruments
// and accepts both plain Buy/Sell and open/close variants everywhere else.
func DefaultActionPolicy(it InstrumentType, a Action) bool {
	switch it {
	case InstrumentEquityOption, InstrumentFutureOption:
		switch a {
		case ActionBuyToOpen, ActionBuyToClose, ActionSellToOpen, ActionSellToClose:
			return true
		}
		return false
	default:
		switch a {
		case ActionBuy, ActionSell,
			ActionBuyToOpen, ActionBuyToClose, ActionSellToOpen, ActionSellToClose:
			return true
		}
		return false
	}
}

// StrictActionPolicy requires open/close actions on every instrument
// type, rejecting plain Buy/Sell entirely.
func StrictActionPolicy(_ InstrumentType, a Action) bool {
	switch a {
	case ActionBuyToOpen, ActionBuyToClose, ActionSellToOpen, ActionSellToClose:
		return true
	}
	return false
}

// Builder assembles an order description and validates it on Build.
// Zero value is not usable; construct with NewBuilder.
type Builder struct {
	tif      TimeInForce
	typ      Type
	price    decimal.Decimal
	priceSet bool
	effect   PriceEffect
	legs     []Leg
	policy   ActionPolicy
}

// NewBuilder returns an empty builder using DefaultActionPolicy.
func NewBuilder() *Builder {
	return &Builder{policy: DefaultActionPolicy}
}

// WithActionPolicy overrides the action/instrument compatibility policy.
func (b *Builder) WithActionPolicy(p ActionPolicy) *Builder {
	if p != nil {
		b.policy = p
	}
	return b
}

func (b *Builder) TimeInForce(tif TimeInForce) *Builder {
	b.tif = tif
	return b
}

func (b *Builder) Type(t Type) *Builder {
	b.typ = t
	return b
}

func (b *Builder) Price(p decimal.Decimal) *Builder {
	b.price = p
	b.priceSet = true
	return b
}

func (b *Builder) PriceEffect(e PriceEffect) *Builder {
	b.effect = e
	return b
}

func (b *Builder) AddLeg(leg Leg) *Builder {
	b.legs = append(b.legs, leg)
	return b
}

// Build validates the description and returns an immutable Order. The
// first violated constraint wins: missing required fields, then per-leg
// checks in leg order, then price/effect consistency.
func (b *Builder) Build() (Order, error) {
	if b.tif == "" {
		return Order{}, &ValidationError{Field: "time-in-force", Reason: "required"}
	}
	if b.typ == "" {
		return Order{}, &ValidationError{Field: "order-type", Reason: "required"}
	}
	if len(b.legs) == 0 {
		return Order{}, &ValidationError{Field: "legs", Reason: "at least one leg required"}
	}

	for i, leg := range b.legs {
		field := fmt.Sprintf("legs[%d]", i)
		if leg.Symbol == "" {
			return Order{}, &ValidationError{Field: field + ".symbol", Reason: "required"}
		}
		if leg.InstrumentType == "" {
			return Order{}, &ValidationError{Field: field + ".instrument-type", Reason: "required"}
		}
		if leg.Quantity <= 0 {
			return Order{}, &ValidationError{Field: field + ".quantity", Reason: "must be positive"}
		}
		if leg.Action == "" {
			return Order{}, &ValidationError{Field: field + ".action", Reason: "required"}
		}
		if !b.policy(leg.InstrumentType, leg.Action) {
			return Order{}, &ValidationError{
				Field:  field + ".action",
				Reason: fmt.Sprintf("%q not allowed for instrument type %q", leg.Action, leg.InstrumentType),
			}
		}
	}

	if b.typ.Priced() {
		if !b.priceSet {
			return Order{}, &ValidationError{
				Field:  "price",
				Reason: fmt.Sprintf("required for order type %q", b.typ),
			}
		}
		if b.effect != EffectDebit && b.effect != EffectCredit {
			return Order{}, &ValidationError{
				Field:  "price-effect",
				Reason: "Debit or Credit required for priced orders",
			}
		}
	} else if b.priceSet {
		return Order{}, &ValidationError{
			Field:  "price",
			Reason: fmt.Sprintf("not allowed for order type %q", b.typ),
		}
	}

	effect := b.effect
	if effect == "" {
		effect = EffectNone
	}

	legs := make([]Leg, len(b.legs))
	copy(legs, b.legs)

	return Order{
		tif:      b.tif,
		typ:      b.typ,
		price:    b.price,
		priceSet: b.priceSet,
		effect:   effect,
		legs:     legs,
	}, nil
}
