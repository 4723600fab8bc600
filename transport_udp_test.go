package smp

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// startEchoDevice runs a UDP responder that answers every echo request with
// the echoed message, and returns its port.
func startEchoDevice(t *testing.T) int {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })

	go func() {
		buf := make([]byte, 65536)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			packet := buf[:n]

			hdr, err := ParseHeader(packet)
			if err != nil {
				continue
			}
			req, err := DecodeCBOR[EchoRequest](packet[headerSize:])
			if err != nil {
				continue
			}

			body, err := EncodeCBOR(EchoResponse{R: req.D})
			if err != nil {
				continue
			}
			rsp := Header{
				Op:      hdr.Op + 1,
				Length:  uint16(len(body)),
				Group:   hdr.Group,
				Seq:     hdr.Seq,
				Command: hdr.Command,
			}
			_, _ = pc.WriteTo(append(rsp.Marshal(), body...), addr)
		}
	}()

	return pc.LocalAddr().(*net.UDPAddr).Port
}

func TestUDPTransportEcho(t *testing.T) {
	t.Parallel()

	port := startEchoDevice(t)

	tr, err := OpenUDP(UDPConfig{Host: "127.0.0.1", Port: port, InitialTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("open udp: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })

	client := NewClient(tr, ClientConfig{SubsequentTimeout: 2 * time.Second})
	reply, err := client.Echo(context.Background(), "hi")
	if err != nil {
		t.Fatalf("echo: %v", err)
	}
	if reply != "hi" {
		t.Fatalf("echo reply: got %q, want %q", reply, "hi")
	}
}

func TestUDPTransportRecvTimeout(t *testing.T) {
	t.Parallel()

	// A listener that never answers.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })

	port := pc.LocalAddr().(*net.UDPAddr).Port
	tr, err := OpenUDP(UDPConfig{Host: "127.0.0.1", Port: port, InitialTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("open udp: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })

	if _, err := tr.Recv(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestOpenUDPRequiresHost(t *testing.T) {
	t.Parallel()

	_, err := OpenUDP(UDPConfig{})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}
