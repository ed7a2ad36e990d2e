// Package buffer implements the chunk type exchanged with hardware
// components and the single-slot port handshake used to exchange them.
package buffer

import "strings"

// Flags marks boundaries carried by a chunk.
// These mirror the OpenMAX buffer header flags the hardware sets.
type Flags uint32

const (
	// FlagEndOfFrame marks the last chunk of a raw frame or encoded access unit.
	FlagEndOfFrame Flags = 1 << iota
	// FlagSyncFrame marks chunks belonging to a decodable (key) frame.
	FlagSyncFrame
	// FlagEndOfStream marks the final chunk of a stream.
	FlagEndOfStream
)

// Has reports whether every flag in mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// String returns a readable list of the set flags.
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	if f.Has(FlagEndOfFrame) {
		names = append(names, "eof")
	}
	if f.Has(FlagSyncFrame) {
		names = append(names, "sync")
	}
	if f.Has(FlagEndOfStream) {
		names = append(names, "eos")
	}
	return strings.Join(names, "|")
}

// Chunk is one delivery from or to a hardware component.
//
// Data aliases storage owned by the component's port. It is only valid
// until the port's buffer is submitted again and must not be retained.
type Chunk struct {
	Data  []byte
	Flags Flags
}

// Len returns the number of valid bytes in the chunk.
func (c Chunk) Len() int {
	return len(c.Data)
}

// EndOfFrame reports whether the chunk terminates a frame.
func (c Chunk) EndOfFrame() bool {
	return c.Flags.Has(FlagEndOfFrame)
}

// SyncFrame reports whether the chunk belongs to a sync frame.
func (c Chunk) SyncFrame() bool {
	return c.Flags.Has(FlagSyncFrame)
}

// EndOfStream reports whether the chunk terminates the stream.
func (c Chunk) EndOfStream() bool {
	return c.Flags.Has(FlagEndOfStream)
}
