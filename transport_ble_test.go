package smp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBLERecvDeliversQueuedPacket(t *testing.T) {
	t.Parallel()

	tr := &BLETransport{
		rcv:     make(chan []byte, 16),
		timeout: time.Second,
	}

	want := []byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00}
	tr.rcv <- want

	got, err := tr.Recv(context.Background())
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("recv: got % x, want % x", got, want)
	}
}

func TestBLERecvTimeout(t *testing.T) {
	t.Parallel()

	tr := &BLETransport{
		rcv:     make(chan []byte),
		timeout: 20 * time.Millisecond,
	}

	if _, err := tr.Recv(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestBLERecvContextCancelled(t *testing.T) {
	t.Parallel()

	tr := &BLETransport{
		rcv:     make(chan []byte),
		timeout: time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.Recv(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenBLERequiresTarget(t *testing.T) {
	t.Parallel()

	_, err := OpenBLE(context.Background(), BLEConfig{})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}
