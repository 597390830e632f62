package qio

// Kind tags what a queue's transport-state discriminated union holds.
// Declared as an open int-based enum so a file-backed queue kind can
// be added later without changing Queue(kind)'s public signature.
type Kind int

const (
	// KindStream backs a queue with a user-space TCP endpoint.
	KindStream Kind = iota
	// KindDatagram backs a queue with Ethernet/IPv4/UDP over a NIC
	// poll-mode driver.
	KindDatagram
	// KindFile is reserved: no file-backed queue exists, and no
	// open/creat entry point is provided.
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindStream:
		return "stream"
	case KindDatagram:
		return "datagram"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// QD is a queue descriptor: a non-negative integer, stable for the
// lifetime of the queue, unique within the process. Zero is reserved
// ("unset"); negative values are never issued.
type QD int64
