package metrics

// NoopCollector is a no-op implementation of the Collector interface.
// All methods are empty stubs that do nothing.
type NoopCollector struct{}

// ConnectionAccepted is a no-op.
func (n *NoopCollector) ConnectionAccepted() {}

// ConnectionDropped is a no-op.
func (n *NoopCollector) ConnectionDropped(reason string) {}

// SessionClosed is a no-op.
func (n *NoopCollector) SessionClosed() {}

// AddressEvicted is a no-op.
func (n *NoopCollector) AddressEvicted(sessions int) {}
