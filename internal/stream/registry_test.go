package stream

import (
	"sync"
	"testing"

	"github.com/avollmer/tastygo/internal/model"
)

func TestRegistry_FirstSubscribeEmitsInstruction(t *testing.T) {
	r := NewRegistry(8, nil)

	h1 := r.Subscribe(model.MustSymbol("AAPL"), model.KindQuote)
	h2 := r.Subscribe(model.MustSymbol("AAPL"), model.KindQuote)

	pending := r.Drain()
	if len(pending) != 1 {
		t.Fatalf("pending = %d instructions, want 1 (second subscriber must not re-emit)", len(pending))
	}
	if !pending[0].Subscribe || pending[0].Symbol != model.MustSymbol("AAPL") || pending[0].Kind != model.KindQuote {
		t.Errorf("instruction = %+v", pending[0])
	}

	if h1.ID == h2.ID {
		t.Error("handles must have distinct IDs")
	}
}

func TestRegistry_LastUnsubscribeEmitsInstruction(t *testing.T) {
	r := NewRegistry(8, nil)

	h1 := r.Subscribe(model.MustSymbol("AAPL"), model.KindQuote)
	h2 := r.Subscribe(model.MustSymbol("AAPL"), model.KindQuote)
	r.Drain()

	r.Unsubscribe(h1)
	if pending := r.Drain(); len(pending) != 0 {
		t.Errorf("unsubscribe with remaining holder emitted %d instructions", len(pending))
	}

	r.Unsubscribe(h2)
	pending := r.Drain()
	if len(pending) != 1 || pending[0].Subscribe {
		t.Fatalf("pending = %+v, want single unsubscribe", pending)
	}
}

func TestRegistry_UnsubscribeIdempotent(t *testing.T) {
	r := NewRegistry(8, nil)

	h := r.Subscribe(model.MustSymbol("SPY"), model.KindTrade)
	r.Drain()

	r.Unsubscribe(h)
	r.Unsubscribe(h)
	r.Unsubscribe(nil)

	if pending := r.Drain(); len(pending) != 1 {
		t.Errorf("double unsubscribe emitted %d instructions, want 1", len(pending))
	}

	// Channel is closed exactly once; a closed channel reads zero.
	if _, ok := <-h.Events(); ok {
		t.Error("expected closed events channel")
	}
}

// TestRegistry_NetInstructionInvariant hammers one key with concurrent
// subscribe/unsubscribe churn and checks that replaying the drained
// instructions in order reproduces the final desired state.
func TestRegistry_NetInstructionInvariant(t *testing.T) {
	r := NewRegistry(8, nil)
	sym := model.MustSymbol("AAPL")

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h := r.Subscribe(sym, model.KindQuote)
				r.Unsubscribe(h)
			}
		}()
	}

	persistent := r.Subscribe(sym, model.KindQuote)
	wg.Wait()

	// Replay the instruction stream: it must be a strict alternation
	// for a single key, and the running state must end matching the
	// registry's actual subscriber count.
	subscribed := false
	for _, in := range r.Drain() {
		if in.Subscribe == subscribed {
			t.Fatalf("instruction stream not alternating: repeated subscribe=%v", in.Subscribe)
		}
		subscribed = in.Subscribe
	}

	want := r.SubscriberCount(sym, model.KindQuote) > 0
	if subscribed != want {
		t.Errorf("replayed state = %v, registry state = %v", subscribed, want)
	}
	r.Unsubscribe(persistent)
}

func TestRegistry_PublishFanOut(t *testing.T) {
	r := NewRegistry(8, nil)

	hA := r.Subscribe(model.MustSymbol("AAPL"), model.KindQuote)
	hB := r.Subscribe(model.MustSymbol("AAPL"), model.KindQuote)
	hOther := r.Subscribe(model.MustSymbol("SPY"), model.KindQuote)

	ev := model.Quote{EventHeader: model.EventHeader{Symbol: model.MustSymbol("AAPL"), Time: 1}}
	r.Publish(ev)

	for _, h := range []*Handle{hA, hB} {
		select {
		case got := <-h.Events():
			if got.EventSymbol() != model.MustSymbol("AAPL") {
				t.Errorf("symbol = %s", got.EventSymbol())
			}
		default:
			t.Error("expected delivered event")
		}
	}

	select {
	case <-hOther.Events():
		t.Error("event delivered to unrelated subscription")
	default:
	}
}

func TestRegistry_PublishDropsWhenBufferFull(t *testing.T) {
	r := NewRegistry(1, nil)

	h := r.Subscribe(model.MustSymbol("AAPL"), model.KindQuote)
	ev := model.Quote{EventHeader: model.EventHeader{Symbol: model.MustSymbol("AAPL"), Time: 1}}

	// Second publish must not block even though nobody is reading.
	r.Publish(ev)
	r.Publish(ev)

	if got := len(h.Events()); got != 1 {
		t.Errorf("buffered events = %d, want 1", got)
	}
}

func TestRegistry_CloseClosesAllConsumers(t *testing.T) {
	r := NewRegistry(8, nil)

	h1 := r.Subscribe(model.MustSymbol("AAPL"), model.KindQuote)
	h2 := r.Subscribe(model.MustSymbol("SPY"), model.KindGreeks)

	r.Close()

	for _, h := range []*Handle{h1, h2} {
		if _, ok := <-h.Events(); ok {
			t.Error("expected closed channel after registry close")
		}
	}

	// Subscribing after close yields an immediately-closed handle.
	h3 := r.Subscribe(model.MustSymbol("QQQ"), model.KindQuote)
	if _, ok := <-h3.Events(); ok {
		t.Error("subscribe after close should return a closed handle")
	}
}

func TestRegistry_DesiredDiscardsPending(t *testing.T) {
	r := NewRegistry(8, nil)

	r.Subscribe(model.MustSymbol("AAPL"), model.KindQuote)
	r.Subscribe(model.MustSymbol("SPY"), model.KindTrade)

	desired := r.Desired()
	if len(desired) != 2 {
		t.Fatalf("desired = %d entries, want 2", len(desired))
	}

	// The snapshot already reflects whatever was queued.
	if pending := r.Drain(); len(pending) != 0 {
		t.Errorf("pending after Desired = %d, want 0", len(pending))
	}
}
