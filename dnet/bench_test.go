package dnet

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mrjvadi/go-dnet/transport/memconn"
)

// echoPeer answers every message sent through pipe until ctx ends.
func echoPeer(ctx context.Context, pipe *memconn.Pipe) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-pipe.Sent():
			var m Message
			if err := json.Unmarshal(b, &m); err != nil {
				continue
			}
			f, _ := json.Marshal(Frame{Action: m.Action, Status: 200, IsSource: true, AsyncID: m.AsyncID})
			_ = pipe.Deliver(f)
		}
	}
}

func newRouterForBench(b *testing.B) (context.Context, *Router) {
	b.Helper()
	pipe := memconn.NewPipe(4096)
	r := New(pipe)
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Connect(ctx, "mem://bench"); err != nil {
		b.Fatalf("connect failed: %v", err)
	}
	go echoPeer(ctx, pipe)
	b.Cleanup(func() {
		cancel()
		_ = r.Close()
	})
	return ctx, r
}

// ------------------------------------------------------------
// Dispatch: one frame against a registry of n persistent entries
// ------------------------------------------------------------
func BenchmarkDispatch_Persistent(b *testing.B) {
	for _, n := range []int{1, 16, 256} {
		b.Run(fmt.Sprintf("entries=%d", n), func(b *testing.B) {
			d, reg, _ := newTestDispatcher()
			for i := 0; i < n; i++ {
				_ = reg.Register(fmt.Sprintf("action-%d", i), nop, Persistent, "")
			}
			f := &Frame{Action: "action-0", Status: 200}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				d.DispatchFrame(f)
			}
		})
	}
}

// ------------------------------------------------------------
// Fire: full round trip through the in-memory transport
// ------------------------------------------------------------
func BenchmarkFire_RoundTrip(b *testing.B) {
	ctx, r := newRouterForBench(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fut, err := r.Fire(ctx, "bench", "payload")
		if err != nil {
			b.Fatalf("fire failed: %v", err)
		}
		if _, err := fut.Wait(ctx); err != nil {
			b.Fatalf("wait failed: %v", err)
		}
	}
}

func BenchmarkFire_Parallel(b *testing.B) {
	ctx, r := newRouterForBench(b)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			fut, err := r.Fire(ctx, "bench", "payload")
			if err != nil {
				b.Fatalf("fire failed: %v", err)
			}
			if _, err := fut.Wait(ctx); err != nil {
				b.Fatalf("wait failed: %v", err)
			}
		}
	})
}
