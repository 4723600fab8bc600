package smp

import (
	"context"
	"time"
)

// Transport moves whole SMP packets (header + CBOR body) to and from a
// device. Implementations own the underlying channel and its framing.
type Transport interface {
	// Send transmits a single SMP packet.
	Send(ctx context.Context, packet []byte) error

	// Recv blocks until the next SMP packet arrives or the receive timeout
	// expires, in which case it returns ErrTimeout. Corrupt frames are
	// dropped and the wait continues until the deadline.
	Recv(ctx context.Context) ([]byte, error)

	// SetTimeout adjusts the receive deadline used by subsequent Recv calls.
	SetTimeout(d time.Duration)

	// FramedSize reports the on-wire size of a packet of packetLen bytes
	// after transport framing.
	FramedSize(packetLen int) int

	// MTU is the maximum framed request size the device accepts.
	MTU() int

	Close() error
}
