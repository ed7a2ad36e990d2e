package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagsString(t *testing.T) {
	tests := []struct {
		flags Flags
		want  string
	}{
		{0, "none"},
		{FlagEndOfFrame, "eof"},
		{FlagSyncFrame | FlagEndOfFrame, "eof|sync"},
		{FlagEndOfFrame | FlagSyncFrame | FlagEndOfStream, "eof|sync|eos"},
		{FlagEndOfStream, "eos"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.flags.String())
	}
}

func TestChunkFlags(t *testing.T) {
	c := Chunk{Data: make([]byte, 10), Flags: FlagEndOfFrame | FlagSyncFrame}
	assert.Equal(t, 10, c.Len())
	assert.True(t, c.EndOfFrame())
	assert.True(t, c.SyncFrame())
	assert.False(t, c.EndOfStream())
	assert.True(t, c.Flags.Has(FlagEndOfFrame|FlagSyncFrame))
	assert.False(t, c.Flags.Has(FlagEndOfFrame|FlagEndOfStream))

	var empty Chunk
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.EndOfFrame())
}
