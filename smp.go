// Package smp is a host-side client for the Simple Management Protocol (SMP)
// spoken by MCUmgr-enabled devices, most notably ones running Zephyr.
//
// A Client drives synchronous request/response exchanges over a Transport
// (serial, UDP or BLE) and exposes one method per management operation:
//
//	tr, err := smp.OpenSerial(smp.SerialConfig{Device: "/dev/ttyACM0"})
//	client := smp.NewClient(tr, smp.ClientConfig{})
//	reply, err := client.Echo(ctx, "hello")
//
// Firmware images are streamed with UploadImage, which sizes chunks against
// the device MTU and the transport framing overhead.
package smp

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// SMP operation codes.
const (
	OpRead     = 0x00
	OpReadRsp  = 0x01
	OpWrite    = 0x02
	OpWriteRsp = 0x03
)

// Management group IDs.
const (
	GroupOS       uint16 = 0
	GroupImage    uint16 = 1
	GroupStat     uint16 = 2
	GroupSettings uint16 = 3
	GroupFS       uint16 = 8
	GroupShell    uint16 = 9
)

// Command IDs for the OS group.
const (
	CmdEcho           = 0x00
	CmdTaskStat       = 0x02
	CmdReset          = 0x05
	CmdMcumgrParams   = 0x06
	CmdOSInfo         = 0x07
	CmdBootloaderInfo = 0x08
)

// Command IDs for the Image group.
const (
	CmdImageState  = 0x00
	CmdImageUpload = 0x01
	CmdImageErase  = 0x05
)

// Command IDs for the Stat group.
const (
	CmdStatRead = 0x00
	CmdStatList = 0x01
)

// Command IDs for the Settings group.
const (
	CmdSettingsVal    = 0x00
	CmdSettingsDelete = 0x01
	CmdSettingsCommit = 0x02
	CmdSettingsLoad   = 0x03
	CmdSettingsSave   = 0x04
)

// Command IDs for the FS group.
const (
	CmdFSFile = 0x00
	CmdFSStat = 0x01
	CmdFSHash = 0x02
)

// Command IDs for the Shell group.
const (
	CmdShellExec = 0x00
)

// Defaults matching the stock MCUmgr serial/UDP configuration.
const (
	DefaultMTU               = 512
	DefaultLineLength        = 128
	DefaultBaudRate          = 115200
	DefaultUDPPort           = 1337
	DefaultNbRetry           = 4
	DefaultInitialTimeout    = 60 * time.Second
	DefaultSubsequentTimeout = 200 * time.Millisecond
)

const headerSize = 8

// Header is the fixed 8-octet header preceding every SMP body.
type Header struct {
	Op      uint8
	Flags   uint8
	Length  uint16
	Group   uint16
	Seq     uint8
	Command uint8
}

// Marshal packs the header into its 8-byte wire form.
func (h Header) Marshal() []byte {
	buf := make([]byte, headerSize)
	buf[0] = h.Op & 0x07
	buf[1] = h.Flags
	binary.BigEndian.PutUint16(buf[2:4], h.Length)
	binary.BigEndian.PutUint16(buf[4:6], h.Group)
	buf[6] = h.Seq
	buf[7] = h.Command
	return buf
}

// ParseHeader reads the 8-byte header from the start of packet. The upper
// bits of the first octet (SMP version on newer stacks) are masked off.
func ParseHeader(packet []byte) (Header, error) {
	if len(packet) < headerSize {
		return Header{}, fmt.Errorf("packet too small: %d bytes, need %d", len(packet), headerSize)
	}
	return Header{
		Op:      packet[0] & 0x07,
		Flags:   packet[1],
		Length:  binary.BigEndian.Uint16(packet[2:4]),
		Group:   binary.BigEndian.Uint16(packet[4:6]),
		Seq:     packet[6],
		Command: packet[7],
	}, nil
}

// ClientConfig tunes the request/response engine. Zero values select the
// package defaults.
type ClientConfig struct {
	// NbRetry is the number of retransmissions after a response timeout.
	NbRetry int
	// SubsequentTimeout replaces the transport's initial timeout once the
	// device has answered the first request of the session.
	SubsequentTimeout time.Duration
}

// Client pairs SMP requests with responses over a single Transport. Only one
// request is outstanding at a time.
type Client struct {
	transport Transport

	nbRetry           int
	subsequentTimeout time.Duration

	// seq holds the next sequence number in its low byte. Seeded randomly so
	// responses meant for a previous process are not mistaken for ours.
	seq       atomic.Uint32
	exchanged bool
}

// NewClient wraps transport in a request/response engine.
func NewClient(transport Transport, cfg ClientConfig) *Client {
	if cfg.NbRetry == 0 {
		cfg.NbRetry = DefaultNbRetry
	}
	if cfg.SubsequentTimeout == 0 {
		cfg.SubsequentTimeout = DefaultSubsequentTimeout
	}

	c := &Client{
		transport:         transport,
		nbRetry:           cfg.NbRetry,
		subsequentTimeout: cfg.SubsequentTimeout,
	}

	var seed [1]byte
	_, _ = rand.Read(seed[:])
	c.seq.Store(uint32(seed[0]))

	return c
}

// Transport returns the underlying transport.
func (c *Client) Transport() Transport {
	return c.transport
}

func (c *Client) nextSeq() uint8 {
	return uint8(c.seq.Add(1) - 1)
}

// Call encodes req as CBOR, sends it as op/group/command and decodes the
// matched response body into rsp (which may be nil for empty responses).
//
// On a response timeout the identical packet is retransmitted, with the same
// sequence number, up to NbRetry times before ErrTimeout is returned. A
// response carrying a non-zero rc is surfaced as *DeviceError and is never
// retried. Responses whose header does not match the request (another
// sequence number, op or group, or a wrong length) are dropped; the first
// matching response is accepted.
func (c *Client) Call(ctx context.Context, op uint8, group uint16, command uint8, req, rsp any) error {
	if op != OpRead && op != OpWrite {
		return fmt.Errorf("invalid request op: %d", op)
	}

	body, err := EncodeCBOR(req)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	if len(body) > 0xffff {
		return fmt.Errorf("request body too large: %d bytes", len(body))
	}

	hdr := Header{
		Op:      op,
		Length:  uint16(len(body)),
		Group:   group,
		Seq:     c.nextSeq(),
		Command: command,
	}
	packet := append(hdr.Marshal(), body...)

	slog.Debug("smp request",
		"op", op, "group", group, "command", command, "seq", hdr.Seq, "len", hdr.Length)

	for attempt := 0; ; attempt++ {
		if err := c.transport.Send(ctx, packet); err != nil {
			return fmt.Errorf("send request: %w", err)
		}

		respBody, err := c.awaitResponse(ctx, hdr)
		if errors.Is(err, ErrTimeout) {
			if attempt < c.nbRetry {
				slog.Debug("response timeout, retransmitting", "seq", hdr.Seq, "attempt", attempt+1)
				continue
			}
			return err
		}
		if err != nil {
			return err
		}

		// The device is up and answering, switch to the short timeout.
		if !c.exchanged {
			c.exchanged = true
			c.transport.SetTimeout(c.subsequentTimeout)
		}

		if err := responseError(group, respBody); err != nil {
			return err
		}
		if rsp != nil && len(respBody) > 0 {
			if err := DecodeCBORInto(respBody, rsp); err != nil {
				return &ProtocolError{Reason: fmt.Sprintf("decode response body: %v", err)}
			}
		}
		return nil
	}
}

// awaitResponse reads frames until one matches the outstanding request or
// the transport deadline expires. Mismatched frames are dropped: a stale
// response can legitimately arrive after a retransmission.
func (c *Client) awaitResponse(ctx context.Context, req Header) ([]byte, error) {
	for {
		packet, err := c.transport.Recv(ctx)
		if err != nil {
			return nil, err
		}

		hdr, err := ParseHeader(packet)
		if err != nil {
			slog.Debug("dropped undersized response", "err", err)
			continue
		}
		if hdr.Seq != req.Seq {
			slog.Debug("dropped stale response", "seq", hdr.Seq, "want", req.Seq)
			continue
		}
		if hdr.Op != req.Op+1 || hdr.Group != req.Group {
			slog.Debug("dropped mismatched response",
				"op", hdr.Op, "group", hdr.Group, "want_op", req.Op+1, "want_group", req.Group)
			continue
		}

		body := packet[headerSize:]
		if int(hdr.Length) != len(body) {
			slog.Debug("dropped response with bad length", "header", hdr.Length, "actual", len(body))
			continue
		}
		return body, nil
	}
}
