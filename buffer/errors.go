package buffer

import "errors"

// Sequencing errors.
// Both indicate a broken single-outstanding-request contract and are fatal.
var (
	// ErrRequestOutstanding indicates a submit while the port's previous
	// request has not completed.
	ErrRequestOutstanding = errors.New("request already outstanding on port")

	// ErrUnexpectedCompletion indicates a completion callback arrived
	// while no request was outstanding.
	ErrUnexpectedCompletion = errors.New("completion without outstanding request")
)

// ErrInvalidCapacity indicates a port was created without storage.
var ErrInvalidCapacity = errors.New("invalid port capacity")
