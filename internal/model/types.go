package model

import (
	"errors"
	"strings"
)

// ErrEmptySymbol is returned when a symbol is empty after normalization.
var ErrEmptySymbol = errors.New("symbol is empty")

// Symbol identifies an instrument (equity, option, future, ...).
// Construct via NewSymbol so equality is exact string match after
// normalization.
type Symbol string

// NewSymbol normalizes and validates a raw symbol string.
func NewSymbol(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", ErrEmptySymbol
	}
	return Symbol(s), nil
}

// MustSymbol is NewSymbol that panics on invalid input. For literals in
// examples and tests.
func MustSymbol(raw string) Symbol {
	s, err := NewSymbol(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Symbol) String() string { return string(s) }

// EventKind identifies the shape of a streaming market event.
type EventKind uint8

const (
	KindUnknown EventKind = iota
	KindQuote
	KindTrade
	KindGreeks
	KindProfile
	KindSummary
)

// kindNames are the wire names used by the feed protocol.
var kindNames = map[EventKind]string{
	KindQuote:   "Quote",
	KindTrade:   "Trade",
	KindGreeks:  "Greeks",
	KindProfile: "Profile",
	KindSummary: "Summary",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseEventKind maps a wire event type name to its EventKind.
// Returns false for event types the runtime does not handle.
func ParseEventKind(name string) (EventKind, bool) {
	switch name {
	case "Quote":
		return KindQuote, true
	case "Trade":
		return KindTrade, true
	case "Greeks":
		return KindGreeks, true
	case "Profile":
		return KindProfile, true
	case "Summary":
		return KindSummary, true
	default:
		return KindUnknown, false
	}
}
