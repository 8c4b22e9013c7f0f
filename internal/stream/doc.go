// Package stream implements the live market data layer.
//
// The package is built from three pieces:
//   - Client: one WebSocket connection to the quote streamer, carrying
//     JSON protocol frames
//   - Registry: refcounted (symbol, kind) subscriptions with per-consumer
//     delivery channels and non-blocking fan-out
//   - Session: the connect / authenticate / live state machine that owns
//     the transport, replays subscriptions after reconnects, and decodes
//     feed data into model events
package stream
