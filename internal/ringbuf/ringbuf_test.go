package ringbuf

import (
	"testing"

	"sniper-engine/internal/model"
)

func TestRing_BasicPushSnapshot(t *testing.T) {
	r := New(4)

	r.Push(model.PriceSample{Price: 100})
	r.Push(model.PriceSample{Price: 200})

	if r.Len() != 2 {
		t.Fatalf("expected len=2, got %d", r.Len())
	}

	got := r.Snapshot()
	if len(got) != 2 || got[0].Price != 100 || got[1].Price != 200 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestRing_OverwritesOldestWhenFull(t *testing.T) {
	r := New(2)

	r.Push(model.PriceSample{Price: 1})
	r.Push(model.PriceSample{Price: 2})
	r.Push(model.PriceSample{Price: 3})

	if r.Len() != 2 {
		t.Fatalf("expected len to stay at capacity 2, got %d", r.Len())
	}
	if r.Overflow() != 1 {
		t.Fatalf("expected overflow=1, got %d", r.Overflow())
	}

	got := r.Snapshot()
	if len(got) != 2 || got[0].Price != 2 || got[1].Price != 3 {
		t.Fatalf("expected oldest sample evicted, got %+v", got)
	}
}

func TestRing_Wraparound(t *testing.T) {
	r := New(4)

	for round := 0; round < 5; round++ {
		for i := 0; i < 4; i++ {
			r.Push(model.PriceSample{Price: float64(round*10 + i)})
		}
		got := r.Snapshot()
		if len(got) != 4 {
			t.Fatalf("round %d: expected len=4, got %d", round, len(got))
		}
		for i, s := range got {
			if s.Price != float64(round*10+i) {
				t.Fatalf("round %d index %d: expected price=%d, got %v", round, i, round*10+i, s.Price)
			}
		}
	}
}

func TestRing_CapacityFloor(t *testing.T) {
	r := New(0)
	if r.Cap() != 1 {
		t.Fatalf("expected capacity floor of 1, got %d", r.Cap())
	}
}
