// Package i420 computes planar YUV 4:2:0 layouts and converts frames
// between the canonical layout and the padded, fragmented layout of
// hardware buffers.
//
// # Layouts
//
// A canonical frame packs the Y, U and V planes back to back. Strides
// are the row widths rounded up to 4 bytes and plane heights are the
// frame height rounded up to 2:
//
//	frame, buf, err := i420.Compute(1920, 1080, 1920, 16)
//	// frame.PlaneOffset == [0 2073600 2592000], frame.TotalSize == 3110400
//
// A hardware buffer uses the same rules over the hardware stride and
// slice height. A frame taller than the slice height is delivered in
// several buffers, and the last one carries ExtraPaddingRows rows of
// padding below the picture.
//
// # Unpacking
//
// Reassembler consumes buffers as the hardware delivers them and hands
// each complete frame to a FrameHandler:
//
//	r := i420.NewReassembler(frame, buf, func(f []byte) error {
//	    _, err := out.Write(f)
//	    return err
//	})
//	status, err := r.Ingest(chunk)
//
// A frame whose buffers do not add up to TotalSize is reported as
// FrameSizeMismatch together with ErrSizeMismatch. There is no attempt
// to repair it.
//
// # Packing
//
// Splitter reads canonical frames from an io.Reader and packs them into
// hardware buffers:
//
//	s := i420.NewSplitter(frame, buf, os.Stdin)
//	chunk, err := s.Fill(port.Buffer())
//
// When the reader runs dry mid-frame the partially packed buffer is
// returned with FlagEndOfStream so it can still be submitted.
//
// # Thread Safety
//
// Reassembler and Splitter are not safe for concurrent use. They are
// driven from a single control loop.
package i420
