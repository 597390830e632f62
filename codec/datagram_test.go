package codec

import (
	"testing"

	"github.com/helyim/demikernel/addressbook"
	"github.com/helyim/demikernel/sga"
)

func sampleParams() DatagramFrameParams {
	return DatagramFrameParams{
		SrcMAC:  addressbook.MAC{0x02, 0, 0, 0, 0, 1},
		DstMAC:  addressbook.MAC{0x02, 0, 0, 0, 0, 2},
		SrcIP:   [4]byte{10, 0, 0, 5},
		SrcPort: 4000,
		DstIP:   [4]byte{10, 0, 0, 7},
		DstPort: 5000,
	}
}

// A packet constructed by the send path and fed back into the receive
// path yields an SGA equal to the original.
func TestDatagramRoundTrip(t *testing.T) {
	in := sga.New([]byte("ping"))
	params := sampleParams()
	frame, err := EncodeDatagramFrame(in, params)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	p := testPool().GetPool(-1)
	out, err := DecodeDatagramFrame(frame, p)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalLen() != in.TotalLen() || !sga.Equal(in, &sga.SGA{Segs: out.Segs}) {
		t.Fatalf("round-trip mismatch: in=%+v out=%+v", in, out)
	}
	if out.PeerAddr == nil || out.PeerAddr.IP != params.SrcIP || out.PeerAddr.Port != params.SrcPort {
		t.Fatalf("peer address mismatch: got %+v", out.PeerAddr)
	}
}

// The checksum computed by the encoder validates as zero when re-summed.
func TestIPv4ChecksumValidates(t *testing.T) {
	frame, err := EncodeDatagramFrame(sga.New([]byte("x")), sampleParams())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ip := frame[EthHeaderLen : EthHeaderLen+IPv4HeaderLen]
	if !VerifyIPv4Checksum(ip) {
		t.Fatalf("checksum did not validate to zero")
	}
}

// Frames failing any destination check are dropped by the filter.
func TestDatagramFilterDrops(t *testing.T) {
	frame, err := EncodeDatagramFrame(sga.New([]byte("x")), sampleParams())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	deviceMAC := sampleParams().DstMAC
	boundIP := [4]byte{10, 0, 0, 7}
	boundPort := uint16(5000)

	ok := DatagramFilter{DeviceMAC: deviceMAC, BoundIP: &boundIP, BoundPort: &boundPort}.Accept(frame)
	if !ok {
		t.Fatalf("expected matching frame to be accepted")
	}

	wrongMAC := addressbook.MAC{9, 9, 9, 9, 9, 9}
	if (DatagramFilter{DeviceMAC: wrongMAC, BoundIP: &boundIP, BoundPort: &boundPort}.Accept(frame)) {
		t.Fatalf("expected wrong destination MAC to be dropped")
	}

	wrongPort := uint16(5001)
	if (DatagramFilter{DeviceMAC: deviceMAC, BoundIP: &boundIP, BoundPort: &wrongPort}.Accept(frame)) {
		t.Fatalf("expected wrong destination port to be dropped")
	}

	wrongIP := [4]byte{10, 0, 0, 99}
	if (DatagramFilter{DeviceMAC: deviceMAC, BoundIP: &wrongIP, BoundPort: &boundPort}.Accept(frame)) {
		t.Fatalf("expected wrong destination IP to be dropped")
	}
}

func TestDatagramOversizeRejected(t *testing.T) {
	big := make([]byte, MaxDatagramPayload+1)
	_, err := EncodeDatagramFrame(sga.New(big), sampleParams())
	if err != ErrOversize {
		t.Fatalf("expected ErrOversize, got %v", err)
	}
}
