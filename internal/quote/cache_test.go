package quote

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/avollmer/tastygo/internal/model"
)

func quoteAt(sym string, ts int64, bid string) model.Quote {
	return model.Quote{
		EventHeader: model.EventHeader{Symbol: model.MustSymbol(sym), Time: ts},
		BidPrice:    decimal.RequireFromString(bid),
	}
}

func TestCache_PutGet(t *testing.T) {
	c := NewCache()

	if _, ok := c.Get(model.MustSymbol("AAPL"), model.KindQuote); ok {
		t.Error("empty cache should not return an event")
	}

	if !c.Put(quoteAt("AAPL", 100, "1.00")) {
		t.Error("first put should be stored")
	}

	ev, ok := c.Get(model.MustSymbol("AAPL"), model.KindQuote)
	if !ok {
		t.Fatal("expected cached event")
	}
	if ev.Timestamp() != 100 {
		t.Errorf("Timestamp = %d, want 100", ev.Timestamp())
	}
}

func TestCache_StaleWriteDropped(t *testing.T) {
	c := NewCache()

	if !c.Put(quoteAt("AAPL", 5, "2.00")) {
		t.Fatal("put ts=5 should be stored")
	}
	if c.Put(quoteAt("AAPL", 3, "1.00")) {
		t.Error("put ts=3 after ts=5 should be dropped")
	}

	ev, ok := c.Get(model.MustSymbol("AAPL"), model.KindQuote)
	if !ok {
		t.Fatal("expected cached event")
	}
	if ev.Timestamp() != 5 {
		t.Errorf("Timestamp = %d, want 5 (newest wins regardless of arrival order)", ev.Timestamp())
	}
}

func TestCache_EqualTimestampOverwrites(t *testing.T) {
	c := NewCache()

	c.Put(quoteAt("AAPL", 10, "1.00"))
	if !c.Put(quoteAt("AAPL", 10, "2.00")) {
		t.Error("equal timestamp should overwrite")
	}

	ev, _ := c.Get(model.MustSymbol("AAPL"), model.KindQuote)
	q := ev.(model.Quote)
	if !q.BidPrice.Equal(decimal.RequireFromString("2.00")) {
		t.Errorf("BidPrice = %s, want 2.00", q.BidPrice)
	}
}

func TestCache_KeysAreIndependent(t *testing.T) {
	c := NewCache()

	c.Put(quoteAt("AAPL", 100, "1.00"))
	c.Put(model.Trade{
		EventHeader: model.EventHeader{Symbol: model.MustSymbol("AAPL"), Time: 50},
		Price:       decimal.RequireFromString("1.01"),
	})
	c.Put(quoteAt("SPY", 10, "4.00"))

	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}

	// A Trade at ts=50 does not displace the Quote at ts=100.
	ev, ok := c.Get(model.MustSymbol("AAPL"), model.KindQuote)
	if !ok || ev.Timestamp() != 100 {
		t.Errorf("quote slot = %v, %v", ev, ok)
	}
	ev, ok = c.Get(model.MustSymbol("AAPL"), model.KindTrade)
	if !ok || ev.Timestamp() != 50 {
		t.Errorf("trade slot = %v, %v", ev, ok)
	}
}

func TestCache_ConcurrentWritersConverge(t *testing.T) {
	c := NewCache()
	symbols := []string{"AAPL", "SPY", "QQQ", "TSLA"}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for ts := int64(1); ts <= 200; ts++ {
				// Writers race with interleaved timestamps.
				c.Put(quoteAt(symbols[(int(ts)+w)%len(symbols)], ts, "1.00"))
			}
		}(w)
	}
	wg.Wait()

	// Every key must hold the highest timestamp any writer offered it.
	for _, sym := range symbols {
		ev, ok := c.Get(model.MustSymbol(sym), model.KindQuote)
		if !ok {
			t.Fatalf("missing entry for %s", sym)
		}
		if ev.Timestamp() < 190 {
			t.Errorf("%s Timestamp = %d, want near 200", sym, ev.Timestamp())
		}
	}
}

func TestCache_Range(t *testing.T) {
	c := NewCache()
	c.Put(quoteAt("AAPL", 1, "1.00"))
	c.Put(quoteAt("SPY", 2, "2.00"))

	seen := map[model.Symbol]int64{}
	c.Range(func(k Key, ev model.MarketEvent) bool {
		seen[k.Symbol] = ev.Timestamp()
		return true
	})

	if len(seen) != 2 {
		t.Errorf("seen = %v, want 2 entries", seen)
	}
}
