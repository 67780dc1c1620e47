package serial

import "sync/atomic"

// Generator issues monotonically increasing uint32 serial numbers in a
// concurrency-safe manner. Serial numbers are unique for the lifetime of the
// process; removing a session never returns its serial number to the pool.
// The sequence wraps only on uint32 overflow.
type Generator struct {
	start   uint32
	counter atomic.Uint32
}

// NewGenerator creates a Generator that will issue serial numbers starting
// from startValue+1. The generator is safe for concurrent use.
//
// Parameters:
//   - startValue: The value to initialize the counter to; the first Next()
//     returns startValue+1
//
// Returns:
//   - A new Generator instance
func NewGenerator(startValue uint32) *Generator {
	gen := &Generator{
		start: startValue,
	}
	gen.counter.Store(startValue)
	return gen
}

// Next returns the next unused serial number by atomically incrementing the
// internal counter. It is safe for concurrent use by multiple goroutines and
// never blocks.
//
// Returns:
//   - The next uint32 serial number
func (g *Generator) Next() uint32 {
	return g.counter.Add(1)
}

// Current returns the most recently issued serial number without consuming
// one. Useful for diagnostics only; another goroutine may have issued further
// serial numbers by the time the value is observed.
//
// Returns:
//   - The last issued uint32 serial number
func (g *Generator) Current() uint32 {
	return g.counter.Load()
}
