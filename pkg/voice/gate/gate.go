// Package gate turns the raw result stream of a speech-recognition session
// into at most one extraction run per distinct utterance.
//
// All state lives in a single goroutine (Run). Capture callbacks, and the
// completion of dispatched runs, reach it as messages over channels, so the
// "is a run in flight" check and the dispatch are never interleaved with
// another event.
package gate

import (
	"context"
	"strings"
	"sync"
	"time"

	"voicetask/internal/pkg/logger"
)

const moduleName = "Gate"

// DefaultCooldown absorbs trailing duplicate deliveries from the engine.
const DefaultCooldown = 500 * time.Millisecond

type State int

const (
	StateIdle State = iota
	StateArmed
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventSessionStart EventKind = iota + 1
	EventResult
	EventSessionEnd
)

type Event struct {
	Kind EventKind
	Text string
}

// Decision reports what the gate did with an event.
type Decision string

const (
	DecisionArmed            Decision = "armed"
	DecisionDisarmed         Decision = "disarmed"
	DecisionDispatched       Decision = "dispatched"
	DecisionDroppedEmpty     Decision = "dropped_empty"
	DecisionDroppedDuplicate Decision = "dropped_duplicate"
	DecisionDroppedInFlight  Decision = "dropped_in_flight"
	DecisionDroppedCooldown  Decision = "dropped_cooldown"
	DecisionIgnored          Decision = "ignored"
	DecisionClosed           Decision = "closed"
)

// Utterance is one finalized transcript, handed to the dispatcher exactly once.
type Utterance struct {
	Seq        uint64
	Text       string
	AcceptedAt time.Time
}

// Dispatcher runs the extraction round-trip for u. The gate stays in
// StateProcessing until it returns.
type Dispatcher func(ctx context.Context, u Utterance)

type Snapshot struct {
	State         State
	InFlight      bool
	LastProcessed string
	Dispatched    uint64
}

type request struct {
	event Event
	reply chan Decision
}

type Gate struct {
	dispatch Dispatcher
	cooldown time.Duration
	now      func() time.Time
	logger   logger.ILogger
	onState  func(State)

	requests    chan request
	completions chan uint64
	done        chan struct{}
	runOnce     sync.Once

	// Owned by the Run goroutine.
	state             State
	sessionActive     bool
	sessionDispatched bool
	lastProcessed     string
	cooldownUntil     time.Time
	seq               uint64

	mu   sync.RWMutex
	snap Snapshot
}

type Option func(*Gate)

func WithCooldown(d time.Duration) Option {
	return func(g *Gate) {
		g.cooldown = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithStateObserver registers fn to be called from the gate goroutine on
// every state change. fn must not block and must not call Submit.
func WithStateObserver(fn func(State)) Option {
	return func(g *Gate) {
		g.onState = fn
	}
}

func New(dispatch Dispatcher, log logger.ILogger, opts ...Option) *Gate {
	g := &Gate{
		dispatch:    dispatch,
		cooldown:    DefaultCooldown,
		now:         time.Now,
		logger:      log,
		requests:    make(chan request),
		completions: make(chan uint64),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run consumes events until ctx is done. Runs already dispatched are not
// cancelled with ctx: they complete and may still merge tasks.
func (g *Gate) Run(ctx context.Context) error {
	started := false
	g.runOnce.Do(func() { started = true })
	if !started {
		return nil
	}
	defer close(g.done)

	dispatchCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-g.requests:
			req.reply <- g.handle(dispatchCtx, req.event)
		case seq := <-g.completions:
			g.complete(seq)
		}
	}
}

// Submit delivers ev to the gate and waits for its decision.
func (g *Gate) Submit(ctx context.Context, ev Event) Decision {
	reply := make(chan Decision, 1)
	select {
	case g.requests <- request{event: ev, reply: reply}:
	case <-ctx.Done():
		return DecisionClosed
	case <-g.done:
		return DecisionClosed
	}
	return <-reply
}

func (g *Gate) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap
}

func (g *Gate) handle(ctx context.Context, ev Event) Decision {
	switch ev.Kind {
	case EventSessionStart:
		g.sessionActive = true
		g.sessionDispatched = false
		if g.state != StateProcessing {
			g.setState(StateArmed)
		}
		return DecisionArmed

	case EventSessionEnd:
		g.sessionActive = false
		if g.sessionDispatched {
			g.extendCooldown()
		}
		if g.state == StateArmed {
			g.setState(StateIdle)
		}
		return DecisionDisarmed

	case EventResult:
		return g.handleResult(ctx, ev.Text)
	}
	return DecisionIgnored
}

func (g *Gate) handleResult(ctx context.Context, raw string) Decision {
	text := strings.TrimSpace(raw)
	decision := g.admit(text)
	if decision != DecisionDispatched {
		g.logger.Debug(moduleName, "Result dropped", map[string]interface{}{
			"decision": string(decision),
			"state":    g.state.String(),
		})
		return decision
	}

	g.lastProcessed = text
	g.seq++
	g.sessionDispatched = true
	u := Utterance{Seq: g.seq, Text: text, AcceptedAt: g.now()}
	g.setState(StateProcessing)

	g.logger.Info(moduleName, "Utterance dispatched", map[string]interface{}{
		"seq":   u.Seq,
		"chars": len(u.Text),
	})

	go func() {
		g.dispatch(ctx, u)
		select {
		case g.completions <- u.Seq:
		case <-g.done:
		}
	}()
	return DecisionDispatched
}

func (g *Gate) admit(text string) Decision {
	switch {
	case text == "":
		return DecisionDroppedEmpty
	case text == g.lastProcessed:
		return DecisionDroppedDuplicate
	case g.state == StateProcessing:
		return DecisionDroppedInFlight
	case g.now().Before(g.cooldownUntil):
		return DecisionDroppedCooldown
	}
	return DecisionDispatched
}

func (g *Gate) complete(seq uint64) {
	g.extendCooldown()
	if g.sessionActive {
		g.setState(StateArmed)
	} else {
		g.setState(StateIdle)
	}
	g.logger.Debug(moduleName, "Run completed", map[string]interface{}{"seq": seq})
}

func (g *Gate) extendCooldown() {
	until := g.now().Add(g.cooldown)
	if until.After(g.cooldownUntil) {
		g.cooldownUntil = until
	}
}

func (g *Gate) setState(s State) {
	changed := g.state != s
	g.state = s

	g.mu.Lock()
	g.snap = Snapshot{
		State:         s,
		InFlight:      s == StateProcessing,
		LastProcessed: g.lastProcessed,
		Dispatched:    g.seq,
	}
	g.mu.Unlock()

	if changed && g.onState != nil {
		g.onState(s)
	}
}
