package chat

import "errors"

var (
	// ErrNotFound is returned when a conversation id is not in the registry.
	ErrNotFound = errors.New("conversation not found")
	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("controller closed")
)

// ErrNoSession is returned when no identity has been established.
var ErrNoSession = errors.New("no active session")
