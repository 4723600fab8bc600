package smp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// UDPConfig describes an SMP-over-UDP connection. Zero values select the
// package defaults.
type UDPConfig struct {
	Host           string
	Port           int
	MTU            int
	InitialTimeout time.Duration
}

// UDPTransport sends one SMP packet per datagram, with no extra envelope.
type UDPTransport struct {
	conn    net.Conn
	addr    string
	mtu     int
	timeout time.Duration
}

var _ Transport = (*UDPTransport)(nil)

// OpenUDP binds an ephemeral local port and connects the socket to the
// configured host and port.
func OpenUDP(cfg UDPConfig) (*UDPTransport, error) {
	if cfg.Host == "" {
		return nil, &ConfigError{Reason: "no UDP host given"}
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultUDPPort
	}
	if cfg.MTU == 0 {
		cfg.MTU = DefaultMTU
	}
	if cfg.InitialTimeout == 0 {
		cfg.InitialTimeout = DefaultInitialTimeout
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect udp %s: %w", addr, err)
	}

	return &UDPTransport{
		conn:    conn,
		addr:    addr,
		mtu:     cfg.MTU,
		timeout: cfg.InitialTimeout,
	}, nil
}

func (t *UDPTransport) Send(ctx context.Context, packet []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.conn.Write(packet); err != nil {
		return fmt.Errorf("udp send to %s: %w", t.addr, err)
	}
	return nil
}

func (t *UDPTransport) Recv(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return nil, fmt.Errorf("udp set deadline: %w", err)
	}

	buf := make([]byte, 65536)
	n, err := t.conn.Read(buf)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("udp recv from %s: %w", t.addr, err)
	}
	return buf[:n], nil
}

func (t *UDPTransport) SetTimeout(d time.Duration) {
	t.timeout = d
}

// FramedSize is the packet length itself: a datagram carries the packet raw.
func (t *UDPTransport) FramedSize(packetLen int) int {
	return packetLen
}

func (t *UDPTransport) MTU() int {
	return t.mtu
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
