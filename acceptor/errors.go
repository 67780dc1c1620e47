package acceptor

import "errors"

var (
	// ErrNotClosed is returned by Bind when the acceptor is not in the Closed
	// state, including when a Bind is already in progress.
	ErrNotClosed = errors.New("acceptor is not closed")

	// ErrNotListening is returned by Unbind when the acceptor is not in the
	// Listening state, including when an Unbind already ran.
	ErrNotListening = errors.New("acceptor is not listening")
)
