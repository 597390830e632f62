// Datagram encoding: the UDP payload carries [num_segs:u32] followed by,
// per segment, [seg_len:u32][seg_bytes]. The Ethernet, IPv4 and UDP
// headers wrapping that payload are synthesized and validated here —
// the datagram transport builds frames directly over a NIC poll-mode
// driver, with no kernel network stack underneath it.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/helyim/demikernel/addressbook"
	"github.com/helyim/demikernel/api"
	"github.com/helyim/demikernel/sga"
)

const (
	EthHeaderLen  = 14
	IPv4HeaderLen = 20
	UDPHeaderLen  = 8

	etherTypeIPv4 = 0x0800
	ipProtoUDP    = 17
	ipv4VerIHL    = 0x45
	ipv4TTL       = 64

	// MaxDatagramPayload bounds the UDP payload (num_segs + per-segment
	// framing + segment bytes) so the whole frame fits one standard
	// Ethernet MTU without fragmentation.
	MaxDatagramPayload = 1500 - IPv4HeaderLen - UDPHeaderLen
)

// ErrNoPeer is returned when encoding a send frame without a resolved
// destination address (neither an explicit peer nor a default peer
// recorded by Connect).
var ErrNoPeer = errors.New("codec: no destination address for datagram send")

// encodeDatagramPayload builds the [num_segs][seg_len][seg_bytes]... body
// carried inside the UDP datagram.
func encodeDatagramPayload(s *sga.SGA) ([]byte, error) {
	total := 4
	for _, seg := range s.Segs {
		total += 4 + len(seg.Buf)
	}
	if total > MaxDatagramPayload {
		return nil, ErrOversize
	}
	out := make([]byte, total)
	binary.BigEndian.PutUint32(out[0:4], uint32(len(s.Segs)))
	off := 4
	for _, seg := range s.Segs {
		binary.BigEndian.PutUint32(out[off:off+4], uint32(len(seg.Buf)))
		off += 4
		copy(out[off:], seg.Buf)
		off += len(seg.Buf)
	}
	return out, nil
}

// decodeDatagramPayload parses a UDP payload back into an SGA, allocating
// each segment's backing buffer from pool. Ownership transfers to the
// caller per the usual pop contract.
func decodeDatagramPayload(payload []byte, pool api.BufferPool) (*sga.SGA, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("codec: datagram payload shorter than segment count")
	}
	numSegs := binary.BigEndian.Uint32(payload[0:4])
	out := &sga.SGA{}
	off := 4
	for i := uint32(0); i < numSegs; i++ {
		if off+4 > len(payload) {
			out.Release()
			return nil, fmt.Errorf("codec: truncated datagram segment length at segment %d", i)
		}
		segLen := int(binary.BigEndian.Uint32(payload[off : off+4]))
		off += 4
		if off+segLen > len(payload) {
			out.Release()
			return nil, fmt.Errorf("codec: truncated datagram segment payload at segment %d", i)
		}
		dst := sga.AllocSegment(out, pool, segLen)
		copy(dst, payload[off:off+segLen])
		off += segLen
	}
	return out, nil
}

// DatagramFrameParams carries everything EncodeDatagramFrame needs to
// synthesize Ethernet/IPv4/UDP headers around an SGA's payload. SrcMAC
// is read from the device; DstMAC is resolved via the address book by
// the caller (transport/datagram) before encoding.
type DatagramFrameParams struct {
	SrcMAC  addressbook.MAC
	DstMAC  addressbook.MAC
	SrcIP   [4]byte
	SrcPort uint16
	DstIP   [4]byte
	DstPort uint16
}

// EncodeDatagramFrame builds a complete Ethernet+IPv4+UDP frame carrying
// s's payload, ready for a single NIC transmit-burst entry. All
// multi-byte fields are emitted in network byte order; the IPv4 header
// checksum is computed per ipv4Checksum, UDP checksum is omitted (zero),
// which is permitted on IPv4.
func EncodeDatagramFrame(s *sga.SGA, p DatagramFrameParams) ([]byte, error) {
	payload, err := encodeDatagramPayload(s)
	if err != nil {
		return nil, err
	}

	udpLen := UDPHeaderLen + len(payload)
	ipLen := IPv4HeaderLen + udpLen
	frame := make([]byte, EthHeaderLen+ipLen)

	// Ethernet header.
	copy(frame[0:6], p.DstMAC[:])
	copy(frame[6:12], p.SrcMAC[:])
	binary.BigEndian.PutUint16(frame[12:14], etherTypeIPv4)

	// IPv4 header.
	ip := frame[EthHeaderLen : EthHeaderLen+IPv4HeaderLen]
	ip[0] = ipv4VerIHL
	ip[1] = 0 // DSCP/ECN
	binary.BigEndian.PutUint16(ip[2:4], uint16(ipLen))
	binary.BigEndian.PutUint16(ip[4:6], 0) // identification
	binary.BigEndian.PutUint16(ip[6:8], 0) // flags/fragment offset
	ip[8] = ipv4TTL
	ip[9] = ipProtoUDP
	binary.BigEndian.PutUint16(ip[10:12], 0) // checksum placeholder
	copy(ip[12:16], p.SrcIP[:])
	copy(ip[16:20], p.DstIP[:])
	csum := ipv4Checksum(ip)
	binary.BigEndian.PutUint16(ip[10:12], csum)

	// UDP header.
	udp := frame[EthHeaderLen+IPv4HeaderLen : EthHeaderLen+ipLen]
	binary.BigEndian.PutUint16(udp[0:2], p.SrcPort)
	binary.BigEndian.PutUint16(udp[2:4], p.DstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpLen))
	binary.BigEndian.PutUint16(udp[6:8], 0) // checksum omitted

	copy(frame[EthHeaderLen+IPv4HeaderLen+UDPHeaderLen:], payload)
	return frame, nil
}

// DatagramFilter describes the destination identity a receiving queue
// checks incoming frames against. A nil *BoundIP or *BoundPort
// means "queue is unbound in that dimension" and that check is skipped.
type DatagramFilter struct {
	DeviceMAC addressbook.MAC
	BoundIP   *[4]byte
	BoundPort *uint16
}

// Accept reports whether an incoming frame survives the destination
// filter chain: destination MAC, EtherType, destination IP (if bound),
// IP protocol, destination port (if bound). A failing frame is meant to
// be silently dropped by the caller — Accept never itself logs or
// errors.
func (f DatagramFilter) Accept(frame []byte) bool {
	if len(frame) < EthHeaderLen+IPv4HeaderLen+UDPHeaderLen {
		return false
	}
	var dstMAC addressbook.MAC
	copy(dstMAC[:], frame[0:6])
	if dstMAC != f.DeviceMAC {
		return false
	}
	if binary.BigEndian.Uint16(frame[12:14]) != etherTypeIPv4 {
		return false
	}
	ip := frame[EthHeaderLen : EthHeaderLen+IPv4HeaderLen]
	if f.BoundIP != nil {
		var dstIP [4]byte
		copy(dstIP[:], ip[16:20])
		if dstIP != *f.BoundIP {
			return false
		}
	}
	if ip[9] != ipProtoUDP {
		return false
	}
	udp := frame[EthHeaderLen+IPv4HeaderLen : EthHeaderLen+IPv4HeaderLen+UDPHeaderLen]
	if f.BoundPort != nil {
		if binary.BigEndian.Uint16(udp[2:4]) != *f.BoundPort {
			return false
		}
	}
	return true
}

// DecodeDatagramFrame parses a frame that has already survived
// DatagramFilter.Accept: it extracts the sender's IPv4+port as the
// SGA's peer address and decodes the UDP payload into segments
// allocated from pool.
func DecodeDatagramFrame(frame []byte, pool api.BufferPool) (*sga.SGA, error) {
	if len(frame) < EthHeaderLen+IPv4HeaderLen+UDPHeaderLen {
		return nil, fmt.Errorf("codec: datagram frame shorter than headers")
	}
	ip := frame[EthHeaderLen : EthHeaderLen+IPv4HeaderLen]
	udp := frame[EthHeaderLen+IPv4HeaderLen : EthHeaderLen+IPv4HeaderLen+UDPHeaderLen]

	var srcIP [4]byte
	copy(srcIP[:], ip[12:16])
	srcPort := binary.BigEndian.Uint16(udp[0:2])

	payload := frame[EthHeaderLen+IPv4HeaderLen+UDPHeaderLen:]
	out, err := decodeDatagramPayload(payload, pool)
	if err != nil {
		return nil, err
	}
	out.PeerAddr = &sga.Addr{IP: srcIP, Port: srcPort}
	return out, nil
}
