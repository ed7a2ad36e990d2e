package hwsim

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/yuvpipe/i420"
	"github.com/sirupsen/logrus"
)

// HeaderSize is the size of the passthrough access unit header.
const HeaderSize = 9

// Header flag bits.
const headerSync = 1

// PassthroughCodec stands in for a hardware video codec. It wraps the raw
// frame in a small header instead of compressing it.
//
// Format: [width:2][height:2][sequence:4][flags:1][planes]
type PassthroughCodec struct {
	frame    i420.FrameGeometry
	sequence uint32
}

// NewPassthroughCodec creates a codec for frames of the given layout.
func NewPassthroughCodec(frame i420.FrameGeometry) *PassthroughCodec {
	logrus.WithFields(logrus.Fields{
		"function": "NewPassthroughCodec",
		"width":    frame.Width,
		"height":   frame.Height,
	}).Info("Creating passthrough codec")

	return &PassthroughCodec{frame: frame}
}

// Encode wraps one canonical frame into an access unit.
func (c *PassthroughCodec) Encode(frame []byte, sync bool) ([]byte, error) {
	if len(frame) != c.frame.TotalSize {
		logrus.WithFields(logrus.Fields{
			"function": "PassthroughCodec.Encode",
			"expected": c.frame.TotalSize,
			"actual":   len(frame),
		}).Error("Frame size validation failed")
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrFrameSize, c.frame.TotalSize, len(frame))
	}

	data := make([]byte, HeaderSize+len(frame))
	binary.LittleEndian.PutUint16(data[0:2], uint16(c.frame.Width))
	binary.LittleEndian.PutUint16(data[2:4], uint16(c.frame.Height))
	binary.LittleEndian.PutUint32(data[4:8], c.sequence)
	if sync {
		data[8] = headerSync
	}
	copy(data[HeaderSize:], frame)
	c.sequence++

	logrus.WithFields(logrus.Fields{
		"function": "PassthroughCodec.Encode",
		"sequence": c.sequence - 1,
		"sync":     sync,
		"size":     len(data),
	}).Debug("Encoded frame")
	return data, nil
}

// AccessUnit is a decoded passthrough header and its payload.
type AccessUnit struct {
	Width    int
	Height   int
	Sequence uint32
	Sync     bool
	Frame    []byte
}

// ParseAccessUnit decodes an access unit produced by Encode. Frame
// aliases data.
func ParseAccessUnit(data []byte) (AccessUnit, error) {
	if len(data) < HeaderSize {
		return AccessUnit{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(data))
	}
	return AccessUnit{
		Width:    int(binary.LittleEndian.Uint16(data[0:2])),
		Height:   int(binary.LittleEndian.Uint16(data[2:4])),
		Sequence: binary.LittleEndian.Uint32(data[4:8]),
		Sync:     data[8]&headerSync != 0,
		Frame:    data[HeaderSize:],
	}, nil
}
