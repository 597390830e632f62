// IPv4 header checksum: the one's-complement of the one's-complement
// sum of the header's 16-bit words, with end-around carry.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import (
	"encoding/binary"

	"golang.org/x/sys/cpu"
)

// wideSum selects the unrolled accumulation when the CPU has SIMD-width
// registers worth feeding; its only input is the 20-byte IPv4 header.
var wideSum = cpu.X86.HasSSE2 || cpu.ARM64.HasASIMD

func onesSum(b []byte) uint32 {
	var sum uint32
	i := 0
	if wideSum {
		for ; i+8 <= len(b); i += 8 {
			sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
			sum += uint32(binary.BigEndian.Uint16(b[i+2 : i+4]))
			sum += uint32(binary.BigEndian.Uint16(b[i+4 : i+6]))
			sum += uint32(binary.BigEndian.Uint16(b[i+6 : i+8]))
		}
	}
	for ; i+1 < len(b); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	return sum
}

func foldCarries(sum uint32) uint32 {
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return sum
}

// ipv4Checksum computes the checksum over b with the checksum field
// zeroed by the caller.
func ipv4Checksum(b []byte) uint16 {
	return ^uint16(foldCarries(onesSum(b)))
}

// VerifyIPv4Checksum re-sums an already-checksummed IPv4 header
// (checksum field included) and reports whether it validates to zero.
func VerifyIPv4Checksum(header []byte) bool {
	return foldCarries(onesSum(header)) == 0xffff
}
