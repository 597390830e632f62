// Stream framing: [magic:u64][payload_len:u64][num_segs:u64] followed by,
// for each segment in order, [seg_len:u64][seg_bytes]. payload_len
// excludes the header and includes every per-segment length prefix.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/sga"
)

// EncodeStreamFrame builds the ordered list of buffers making up one
// complete on-wire stream frame for s, suitable for a single vectored
// write (net.Buffers / SendmsgBuffers). The returned slices alias s's
// segment data — the caller must not mutate s until the write completes.
func EncodeStreamFrame(s *sga.SGA) [][]byte {
	payloadLen := uint64(0)
	for _, seg := range s.Segs {
		payloadLen += 8 + uint64(len(seg.Buf))
	}

	header := make([]byte, HeaderLen)
	binary.BigEndian.PutUint64(header[0:8], Magic)
	binary.BigEndian.PutUint64(header[8:16], payloadLen)
	binary.BigEndian.PutUint64(header[16:24], uint64(len(s.Segs)))

	out := make([][]byte, 0, 1+2*len(s.Segs))
	out = append(out, header)
	for _, seg := range s.Segs {
		lenPrefix := make([]byte, 8)
		binary.BigEndian.PutUint64(lenPrefix, uint64(len(seg.Buf)))
		out = append(out, lenPrefix, seg.Buf)
	}
	return out
}

// EncodeStreamFrameBytes flattens EncodeStreamFrame's buffer list into a
// single contiguous slice, so a resumable writer can track progress as
// one running byte offset instead of juggling segment boundaries.
func EncodeStreamFrameBytes(s *sga.SGA) []byte {
	bufs := EncodeStreamFrame(s)
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	out := make([]byte, 0, total)
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

// DecodeStreamHeader validates and parses a 24-byte stream frame header.
// A magic mismatch returns ErrProtocol: the frame is malformed and the
// connection must be considered poisoned.
func DecodeStreamHeader(hdr [HeaderLen]byte) (payloadLen, numSegs uint64, err error) {
	magic := binary.BigEndian.Uint64(hdr[0:8])
	if magic != Magic {
		return 0, 0, ErrProtocol
	}
	payloadLen = binary.BigEndian.Uint64(hdr[8:16])
	numSegs = binary.BigEndian.Uint64(hdr[16:24])
	return payloadLen, numSegs, nil
}

// DecodeStreamPayload parses a fully-received payload (exactly
// payload_len bytes, per the header) into an SGA, allocating each
// segment's backing buffer from pool. Ownership of every segment buffer
// transfers to the caller, which must call SGA.Release when done.
func DecodeStreamPayload(payload []byte, numSegs uint64, pool api.BufferPool) (*sga.SGA, error) {
	out := &sga.SGA{}
	off := 0
	for i := uint64(0); i < numSegs; i++ {
		if off+8 > len(payload) {
			out.Release()
			return nil, fmt.Errorf("codec: truncated segment length prefix at segment %d", i)
		}
		segLen := int(binary.BigEndian.Uint64(payload[off : off+8]))
		off += 8
		if off+segLen > len(payload) {
			out.Release()
			return nil, fmt.Errorf("codec: truncated segment payload at segment %d", i)
		}
		dst := sga.AllocSegment(out, pool, segLen)
		copy(dst, payload[off:off+segLen])
		off += segLen
	}
	return out, nil
}
