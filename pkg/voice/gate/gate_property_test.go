package gate

import (
	"context"
	"strings"
	"testing"
	"time"

	"voicetask/internal/pkg/logger"

	"pgregory.net/rapid"
)

// TestProperty_DispatchesMatchModel verifies that, when every run finishes
// before the next result arrives, the gate dispatches exactly the non-blank
// results that differ from the previously dispatched one, in order.
func TestProperty_DispatchesMatchModel(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		texts := rapid.SliceOfN(rapid.SampledFrom([]string{"", " ", "buy milk", "call mom", " buy milk", "water plants"}), 1, 12).Draw(rt, "texts")

		rec := &recorder{}
		g := New(rec.dispatch, logger.NewNopLogger(), WithCooldown(0))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = g.Run(ctx) }()

		var want []string
		last := ""
		for _, text := range texts {
			norm := strings.TrimSpace(text)
			if norm != "" && norm != last {
				want = append(want, norm)
				last = norm
			}

			g.Submit(ctx, result(text))
			deadline := time.Now().Add(time.Second)
			for g.Snapshot().InFlight {
				if time.Now().After(deadline) {
					rt.Fatalf("run never completed")
				}
				time.Sleep(time.Millisecond)
			}
		}

		got := rec.texts()
		if len(got) != len(want) {
			rt.Fatalf("dispatched %q, want %q", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				rt.Fatalf("dispatched %q, want %q", got, want)
			}
		}
	})
}

// TestProperty_AtMostOneInFlight verifies that while a run is outstanding no
// sequence of events can start a second one.
func TestProperty_AtMostOneInFlight(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		kinds := rapid.SliceOfN(rapid.SampledFrom([]EventKind{EventSessionStart, EventResult, EventSessionEnd}), 1, 20).Draw(rt, "kinds")

		rec := &recorder{hold: make(chan struct{})}
		defer close(rec.hold)
		g := New(rec.dispatch, logger.NewNopLogger(), WithCooldown(0))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = g.Run(ctx) }()

		dispatched := 0
		for i, kind := range kinds {
			text := ""
			if kind == EventResult {
				text = rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "text")
			}
			if g.Submit(ctx, Event{Kind: kind, Text: text}) == DecisionDispatched {
				dispatched++
			}
			if dispatched > 1 {
				rt.Fatalf("second dispatch at event %d while first still in flight", i)
			}
		}
	})
}
