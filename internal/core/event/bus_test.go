package event

import (
	"testing"

	"go.uber.org/zap"
)

type ping struct{ N int }
type pong struct{ N int }

func TestDoubleBuffering(t *testing.T) {
	b := NewBus(zap.NewNop())
	var got []int
	Subscribe(b, func(ev ping) { got = append(got, ev.N) })

	Emit(b, ping{N: 1})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatal("event delivered in the tick it was emitted")
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want [1]", got)
	}

	// Front buffer drains after the next swap.
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Errorf("event delivered twice: %v", got)
	}
}

func TestTypedRouting(t *testing.T) {
	b := NewBus(zap.NewNop())
	var pings, pongs int
	Subscribe(b, func(ping) { pings++ })
	Subscribe(b, func(pong) { pongs++ })

	Emit(b, ping{})
	Emit(b, ping{})
	Emit(b, pong{})
	b.SwapBuffers()
	b.DispatchAll()

	if pings != 2 || pongs != 1 {
		t.Errorf("pings=%d pongs=%d, want 2 and 1", pings, pongs)
	}
}

func TestHandlerPanicIsolated(t *testing.T) {
	b := NewBus(zap.NewNop())
	var delivered int
	Subscribe(b, func(ping) { panic("boom") })
	Subscribe(b, func(ping) { delivered++ })

	Emit(b, ping{})
	b.SwapBuffers()
	b.DispatchAll()

	if delivered != 1 {
		t.Errorf("later handler starved by panicking one: delivered=%d", delivered)
	}
}
