// Package metrics defines the Collector interface for recording
// connection-admission metrics, with no-op and Prometheus implementations.
package metrics

// Collector defines the interface for recording acceptor metrics.
type Collector interface {
	// ConnectionAccepted records one admitted connection.
	ConnectionAccepted()

	// ConnectionDropped records one connection dropped before admission,
	// labeled with the gate's reason (e.g. "not_listening", "mode_changing",
	// "banned").
	ConnectionDropped(reason string)

	// SessionClosed records one admitted session removed through the normal
	// removal path.
	SessionClosed()

	// AddressEvicted records one address removed by an eviction sweep along
	// with the number of sessions that were force-closed for it.
	AddressEvicted(sessions int)
}
