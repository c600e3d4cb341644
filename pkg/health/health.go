// Package health serves liveness and readiness probes backed by periodic
// checks.
//
// A check flips to unhealthy only after FailureThreshold consecutive
// failures and back to healthy after SuccessThreshold consecutive passes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects which probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// Options tune a single check. Zero fields take defaults.
type Options struct {
	Timeout          time.Duration // default 1s
	FailureThreshold int           // default 3
	SuccessThreshold int           // default 1
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = time.Second
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 3
	}
	if o.SuccessThreshold <= 0 {
		o.SuccessThreshold = 1
	}
	return o
}

// probe is one registered check. run is only called from the probe's own
// goroutine; healthy and lastErr are read concurrently by handlers.
type probe struct {
	name string
	opts Options
	fn   CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails, passes int
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	err := p.fn(ctx)
	p.lastErr.Store(&err)
	if err != nil {
		p.passes = 0
		p.fails++
		if p.fails >= p.opts.FailureThreshold {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	p.passes++
	if p.passes >= p.opts.SuccessThreshold {
		p.healthy.Store(true)
	}
}

func (p *probe) err() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// Health tracks the probes of one process. It starts not ready; call
// SetReady(true) once initialization completes.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes [2][]*probe
	cancel context.CancelFunc
}

// New creates an empty Health.
func New() *Health {
	return &Health{}
}

// Register adds a check to the given probe kind. Checks start healthy.
func (h *Health) Register(kind Kind, name string, opts Options, fn CheckFunc) {
	p := &probe{name: name, opts: opts.withDefaults(), fn: fn}
	p.healthy.Store(true)

	h.mu.Lock()
	h.probes[kind] = append(h.probes[kind], p)
	h.mu.Unlock()
}

func (h *Health) snapshot(kind Kind) []*probe {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*probe(nil), h.probes[kind]...)
}

// Start runs every registered check immediately and then once per interval
// until Stop is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	for _, kind := range []Kind{Liveness, Readiness} {
		for _, p := range h.snapshot(kind) {
			go loop(ctx, p, interval)
		}
	}
}

func loop(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Stop cancels the background checks. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady toggles the manual readiness gate.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(Readiness))) == 0
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(Liveness)))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(Readiness))
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func failures(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		if p.healthy.Load() {
			continue
		}
		msg := "check is unhealthy"
		if err := p.err(); err != nil {
			msg = err.Error()
		}
		out[p.name] = msg
	}
	return out
}

// writeStatus responds 200 {"status":"ok"} or 503 with the failing checks.
func writeStatus(w http.ResponseWriter, failed map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	code := http.StatusOK
	if len(failed) == 0 {
		e.Str("ok")
	} else {
		code = http.StatusServiceUnavailable
		e.Str("unhealthy")

		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		sort.Strings(names)

		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failed[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
