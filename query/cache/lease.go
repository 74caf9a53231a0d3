package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("lease pool closed")

// LeasePool hands out exclusive leases on resources that must not be used by
// two executions at once, creating resources on demand and keeping up to
// maxIdle of them for reuse.
type LeasePool[T any] struct {
	create  func(ctx context.Context) (T, error)
	destroy func(T) error
	maxIdle int

	mu     sync.Mutex
	idle   []T
	leased int
	closed bool
}

// NewLeasePool creates a pool. destroy may be nil.
func NewLeasePool[T any](maxIdle int, create func(ctx context.Context) (T, error), destroy func(T) error) *LeasePool[T] {
	return &LeasePool[T]{create: create, destroy: destroy, maxIdle: maxIdle}
}

// Lease is an exclusive hold on one resource. Release must be called exactly
// once; later calls are no-ops, so it is safe to defer it and also release
// early.
type Lease[T any] struct {
	pool    *LeasePool[T]
	value   T
	once    sync.Once
	discard bool
}

// Acquire leases an idle resource or creates a new one.
func (p *LeasePool[T]) Acquire(ctx context.Context) (*Lease[T], error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		v := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.leased++
		p.mu.Unlock()
		return &Lease[T]{pool: p, value: v}, nil
	}
	p.leased++
	p.mu.Unlock()

	v, err := p.create(ctx)
	if err != nil {
		p.mu.Lock()
		p.leased--
		p.mu.Unlock()
		return nil, err
	}
	return &Lease[T]{pool: p, value: v}, nil
}

// Value returns the leased resource.
func (l *Lease[T]) Value() T { return l.value }

// Discard marks the resource as broken so that Release destroys it instead of
// returning it to the pool.
func (l *Lease[T]) Discard() { l.discard = true }

// Release returns the resource to the pool.
func (l *Lease[T]) Release() error {
	var err error
	l.once.Do(func() {
		err = l.pool.put(l.value, l.discard)
	})
	return err
}

func (p *LeasePool[T]) put(v T, discard bool) error {
	p.mu.Lock()
	p.leased--
	if !discard && !p.closed && len(p.idle) < p.maxIdle {
		p.idle = append(p.idle, v)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	if p.destroy != nil {
		return p.destroy(v)
	}
	return nil
}

// Leased returns the number of resources currently leased.
func (p *LeasePool[T]) Leased() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased
}

// Idle returns the number of resources waiting for reuse.
func (p *LeasePool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close destroys idle resources. Resources still leased are destroyed when
// released.
func (p *LeasePool[T]) Close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	var errs []error
	if p.destroy != nil {
		for _, v := range idle {
			if err := p.destroy(v); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
