package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// State is where a Resolver is in choosing the process's store.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateDurable
	StateInMemory
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateDurable:
		return "durable"
	case StateInMemory:
		return "in-memory"
	}
	return "unknown"
}

// Connector opens the durable store.
type Connector func(ctx context.Context) (Store, error)

// ResolvedFunc is told the outcome of the one resolution. cause is the
// connection error when the resolver fell back to memory.
type ResolvedFunc func(state State, backend string, cause error)

// Resolver picks, once per process, the Store every caller gets: the
// durable store if it can be opened on first use, otherwise the seeded
// in-memory store for the rest of the process lifetime. The durable store is
// never retried.
type Resolver struct {
	connect    Connector
	timeout    time.Duration
	fallback   func() Store
	onResolved ResolvedFunc
	log        *logrus.Entry

	group   singleflight.Group
	state   atomic.Int32
	current atomic.Pointer[resolved]
}

type resolved struct {
	store Store
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithConnectTimeout bounds the single connection attempt.
func WithConnectTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// WithFallback replaces the store used when the connection fails.
func WithFallback(fn func() Store) ResolverOption {
	return func(r *Resolver) { r.fallback = fn }
}

// WithLogger sets the logger resolution events are reported to.
func WithLogger(l *logrus.Entry) ResolverOption {
	return func(r *Resolver) { r.log = l }
}

// OnResolved registers a callback run once resolution completes.
func OnResolved(fn ResolvedFunc) ResolverOption {
	return func(r *Resolver) { r.onResolved = fn }
}

func NewResolver(connect Connector, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		connect:  connect,
		timeout:  10 * time.Second,
		fallback: func() Store { return NewMemoryStore() },
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Static returns a Resolver already settled on s.
func Static(s Store) *Resolver {
	r := NewResolver(func(context.Context) (Store, error) { return s, nil })
	r.settle(s, nil)
	return r
}

// State reports the resolver's current state.
func (r *Resolver) State() State {
	return State(r.state.Load())
}

// Resolve returns the process's store, connecting on the first call.
// Concurrent first callers share that one attempt. The only error is the
// caller's context ending while it waits.
func (r *Resolver) Resolve(ctx context.Context) (Store, error) {
	if cur := r.current.Load(); cur != nil {
		return cur.store, nil
	}
	ch := r.group.DoChan("store", func() (any, error) {
		// A flight started after the previous one finished must not connect
		// again.
		if cur := r.current.Load(); cur != nil {
			return cur.store, nil
		}
		return r.resolve(), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Store), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) resolve() Store {
	r.state.Store(int32(StateConnecting))
	r.log.Info("connecting to durable store")

	// Detached from any caller so one cancelled request cannot push the
	// whole process onto the fallback.
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	s, err := r.connect(ctx)
	if err != nil {
		r.log.WithError(err).Warn("durable store unavailable, using in-memory store for the rest of this process")
		fb := r.fallback()
		r.settle(fb, err)
		return fb
	}
	r.settle(s, nil)
	r.log.WithField("backend", s.Backend()).Info("durable store connected")
	return s
}

func (r *Resolver) settle(s Store, cause error) {
	st := StateDurable
	if cause != nil || s.Backend() == "memory" {
		st = StateInMemory
	}
	r.current.Store(&resolved{store: s})
	r.state.Store(int32(st))
	if r.onResolved != nil {
		r.onResolved(st, s.Backend(), cause)
	}
}

// Close releases the resolved store, if any.
func (r *Resolver) Close(ctx context.Context) error {
	cur := r.current.Load()
	if cur == nil {
		return nil
	}
	return cur.store.Close(ctx)
}
