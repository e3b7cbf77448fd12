package limiter

import "context"

// Slots bounds concurrent page renders. MuPDF rasterization is memory heavy;
// unbounded parallel renders of a large section can exhaust the host.
type Slots struct {
	sem chan struct{}
}

// New creates a limiter with max concurrent slots.
func New(max int) *Slots {
	if max <= 0 {
		max = 4
	}
	return &Slots{sem: make(chan struct{}, max)}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// function must be called exactly once.
func (s *Slots) Acquire(ctx context.Context) (func(), error) {
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}

// TryAcquire reserves a slot without blocking.
func (s *Slots) TryAcquire() (func(), bool) {
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, true
	default:
		return func() {}, false
	}
}
