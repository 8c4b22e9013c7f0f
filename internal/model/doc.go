// Package model defines the market data types shared across the runtime.
//
// Conventions:
//   - Prices and sizes: decimal.Decimal (brokerage sends arbitrary precision)
//   - Event timestamps: int64 milliseconds since Unix epoch, monotonically
//     increasing per (symbol, kind) stream; used for staleness ordering
//   - Symbols: normalized uppercase strings, exact-match equality
package model
