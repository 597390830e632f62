// Package codec implements the framing and packet codec: a
// length-delimited, magic-prefixed framing for stream transports and an
// equivalent scatter-gather payload encoding over UDP for the datagram
// transport, including the Ethernet/IPv4/UDP headers the datagram
// transport must synthesize and validate itself.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import "errors"

// Magic is the 64-bit constant that must prefix every stream frame.
// Its specific value is arbitrary but must be agreed between peers.
const Magic uint64 = 0x44454d49_4b45524e // "DEMIKERN"

// HeaderLen is the fixed size, in bytes, of the stream frame header:
// magic, payload length, and segment count, each a big-endian u64.
const HeaderLen = 24

// ErrProtocol signals a malformed frame (magic mismatch); the caller
// must treat the underlying connection as poisoned.
var ErrProtocol = errors.New("codec: frame magic mismatch")

// ErrOversize signals an SGA too large to fit a single UDP datagram;
// datagrams are never fragmented at this layer.
var ErrOversize = errors.New("codec: sga exceeds datagram capacity")
