package feed

import "errors"

// ErrClosed is returned when subscribing to a hub that has stopped.
var ErrClosed = errors.New("feed: hub closed")
