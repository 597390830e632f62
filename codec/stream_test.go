package codec

import (
	"encoding/binary"
	"testing"

	"github.com/helyim/demikernel/pool"
	"github.com/helyim/demikernel/sga"
)

func testPool() *pool.BufferPoolManager {
	return pool.NewBufferPoolManager()
}

// Round-trip for any SGA with total payload within frame size.
func TestStreamRoundTrip(t *testing.T) {
	cases := [][][]byte{
		{[]byte("hello")},
		{[]byte("ab"), []byte("cdef")},
		{[]byte(""), []byte("x")},
	}
	p := testPool().GetPool(-1)
	for _, segs := range cases {
		in := sga.New(segs...)
		frame := EncodeStreamFrameBytes(in)

		var hdr [HeaderLen]byte
		copy(hdr[:], frame[:HeaderLen])
		payloadLen, numSegs, err := DecodeStreamHeader(hdr)
		if err != nil {
			t.Fatalf("unexpected protocol error: %v", err)
		}
		payload := frame[HeaderLen : HeaderLen+int(payloadLen)]
		out, err := DecodeStreamPayload(payload, numSegs, p)
		if err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if !sga.Equal(in, out) {
			t.Fatalf("round-trip mismatch: in=%+v out=%+v", in, out)
		}
	}
}

// A reader accumulating partial byte counts across arbitrary
// chunking of the same byte sequence observes identical decoded SGAs.
func TestStreamFramingSelfSync(t *testing.T) {
	in := sga.New([]byte("ab"), []byte("cdef"))
	frame := EncodeStreamFrameBytes(in)

	for _, chunkSize := range []int{1, 3, 7, len(frame)} {
		buf := make([]byte, 0, len(frame))
		for off := 0; off < len(frame); off += chunkSize {
			end := off + chunkSize
			if end > len(frame) {
				end = len(frame)
			}
			buf = append(buf, frame[off:end]...)
		}
		var hdr [HeaderLen]byte
		copy(hdr[:], buf[:HeaderLen])
		payloadLen, numSegs, err := DecodeStreamHeader(hdr)
		if err != nil {
			t.Fatalf("chunk %d: unexpected protocol error: %v", chunkSize, err)
		}
		p := testPool().GetPool(-1)
		out, err := DecodeStreamPayload(buf[HeaderLen:HeaderLen+int(payloadLen)], numSegs, p)
		if err != nil {
			t.Fatalf("chunk %d: decode payload: %v", chunkSize, err)
		}
		if !sga.Equal(in, out) {
			t.Fatalf("chunk %d: mismatch: out=%+v", chunkSize, out)
		}
	}
}

func TestStreamHeaderMagicMismatch(t *testing.T) {
	var hdr [HeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], Magic+1)
	_, _, err := DecodeStreamHeader(hdr)
	if err != ErrProtocol {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}
