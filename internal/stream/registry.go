package stream

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/avollmer/tastygo/internal/model"
)

// Instruction is one net upstream subscription change. Instructions are
// emitted only on 0→1 and 1→0 refcount transitions, so the stream of
// instructions always reflects the net change in desired state.
type Instruction struct {
	Subscribe bool
	Symbol    model.Symbol
	Kind      model.EventKind
}

// Entry converts the instruction to its wire form.
func (i Instruction) Entry() SubscriptionEntry {
	return SubscriptionEntry{Type: i.Kind.String(), Symbol: i.Symbol.String()}
}

type subKey struct {
	symbol model.Symbol
	kind   model.EventKind
}

// Handle is one consumer's attachment to a (symbol, kind) stream. Each
// handle owns a private buffered channel; no two handles share one.
type Handle struct {
	ID     uuid.UUID
	key    subKey
	events chan model.MarketEvent
	closed bool
}

// Events returns the handle's delivery channel. The channel is closed
// when the handle is unsubscribed or the registry shuts down.
func (h *Handle) Events() <-chan model.MarketEvent {
	return h.events
}

// Symbol returns the subscribed symbol.
func (h *Handle) Symbol() model.Symbol { return h.key.symbol }

// Kind returns the subscribed event kind.
func (h *Handle) Kind() model.EventKind { return h.key.kind }

// Registry tracks which (symbol, kind) pairs consumers want and fans
// decoded events out to them.
//
// A single mutex guards both the refcount mutation and the decision to
// queue an upstream instruction, so a 0→1 or 1→0 transition and its
// instruction are one atomic step. Concurrent subscribe/unsubscribe
// churn therefore always nets out: the queued instructions match the
// difference between the old and new desired state.
type Registry struct {
	logger  *slog.Logger
	bufSize int

	mu       sync.Mutex
	subs     map[subKey]map[uuid.UUID]*Handle
	pending  []Instruction
	notifyCh chan struct{}
	closed   bool
}

// NewRegistry creates an empty registry. bufSize is the per-handle
// delivery buffer; zero uses a default of 256.
func NewRegistry(bufSize int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Registry{
		logger:   logger,
		bufSize:  bufSize,
		subs:     make(map[subKey]map[uuid.UUID]*Handle),
		notifyCh: make(chan struct{}, 1),
	}
}

// Subscribe registers interest in (symbol, kind) and returns a handle
// whose channel receives matching events. The first subscriber for a
// key queues an upstream subscribe instruction.
func (r *Registry) Subscribe(symbol model.Symbol, kind model.EventKind) *Handle {
	h := &Handle{
		ID:     uuid.New(),
		key:    subKey{symbol: symbol, kind: kind},
		events: make(chan model.MarketEvent, r.bufSize),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		h.closed = true
		close(h.events)
		return h
	}

	holders, ok := r.subs[h.key]
	if !ok {
		holders = make(map[uuid.UUID]*Handle)
		r.subs[h.key] = holders
		r.enqueueLocked(Instruction{Subscribe: true, Symbol: symbol, Kind: kind})
	}
	holders[h.ID] = h

	return h
}

// Unsubscribe detaches the handle and closes its channel. The last
// subscriber for a key queues an upstream unsubscribe instruction.
// Unsubscribing an already-detached handle is a no-op.
func (r *Registry) Unsubscribe(h *Handle) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	close(h.events)

	holders, ok := r.subs[h.key]
	if !ok {
		return
	}
	delete(holders, h.ID)
	if len(holders) == 0 {
		delete(r.subs, h.key)
		if !r.closed {
			r.enqueueLocked(Instruction{Subscribe: false, Symbol: h.key.symbol, Kind: h.key.kind})
		}
	}
}

// enqueueLocked appends an instruction and nudges the notify channel.
// Caller holds r.mu.
func (r *Registry) enqueueLocked(in Instruction) {
	r.pending = append(r.pending, in)
	select {
	case r.notifyCh <- struct{}{}:
	default:
	}
}

// Notify signals that queued instructions are waiting in Drain.
func (r *Registry) Notify() <-chan struct{} {
	return r.notifyCh
}

// Drain removes and returns all queued instructions.
func (r *Registry) Drain() []Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.pending
	r.pending = nil
	return pending
}

// Desired returns the current desired subscription set and discards any
// queued instructions, which the snapshot already reflects. The session
// calls this when (re)entering the live state to replay subscriptions.
func (r *Registry) Desired() []SubscriptionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = nil
	entries := make([]SubscriptionEntry, 0, len(r.subs))
	for k := range r.subs {
		entries = append(entries, SubscriptionEntry{Type: k.kind.String(), Symbol: k.symbol.String()})
	}
	return entries
}

// Publish fans the event out to every handle subscribed to its
// (symbol, kind). Delivery never blocks: a consumer whose buffer is
// full misses the event and a warning is logged.
func (r *Registry) Publish(ev model.MarketEvent) {
	key := subKey{symbol: ev.EventSymbol(), kind: ev.Kind()}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.subs[key] {
		select {
		case h.events <- ev:
		default:
			r.logger.Warn("consumer buffer full, dropping event",
				"symbol", key.symbol,
				"kind", key.kind.String(),
				"handle", h.ID,
			)
		}
	}
}

// SubscriberCount returns the number of handles for a key.
func (r *Registry) SubscriberCount(symbol model.Symbol, kind model.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[subKey{symbol: symbol, kind: kind}])
}

// Close closes every consumer channel and rejects further activity.
// Used when the session goes terminally disconnected or shuts down.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, holders := range r.subs {
		for _, h := range holders {
			h.closed = true
			close(h.events)
		}
	}
	r.subs = make(map[subKey]map[uuid.UUID]*Handle)
	r.pending = nil
}
