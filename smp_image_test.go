package smp

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"testing"
)

// uploadDevice emulates the device side of the image upload command.
type uploadDevice struct {
	t *testing.T

	total    uint32
	expected []byte

	received []byte
	off      uint32
}

func (d *uploadDevice) respond(packet []byte) [][]byte {
	d.t.Helper()

	hdr, err := ParseHeader(packet)
	if err != nil {
		d.t.Fatalf("parse request header: %v", err)
	}
	if hdr.Group != GroupImage || hdr.Command != CmdImageUpload || hdr.Op != OpWrite {
		d.t.Fatalf("unexpected request: group=%d command=%d op=%d", hdr.Group, hdr.Command, hdr.Op)
	}

	req, err := DecodeCBOR[ImageUploadRequest](packet[headerSize:])
	if err != nil {
		d.t.Fatalf("decode upload request: %v", err)
	}

	if req.Off == 0 {
		if req.Len != d.total {
			d.t.Fatalf("first chunk len: got %d, want %d", req.Len, d.total)
		}
		sum := sha256.Sum256(d.expected)
		if !bytes.Equal(req.SHA, sum[:]) {
			d.t.Fatal("first chunk must carry the image SHA-256")
		}
	} else {
		if req.Len != 0 || req.SHA != nil {
			d.t.Fatalf("chunk at offset %d must not repeat len/sha", req.Off)
		}
	}

	if req.Off != d.off {
		d.t.Fatalf("chunk offset: got %d, device expects %d", req.Off, d.off)
	}

	d.received = append(d.received, req.Data...)
	d.off += uint32(len(req.Data))

	return [][]byte{responsePacket(d.t, packet, ImageUploadResponse{Off: d.off})}
}

func TestUploadImage(t *testing.T) {
	t.Parallel()

	data := make([]byte, 3000)
	for i := range data {
		data[i] = byte(i % 251)
	}

	dev := &uploadDevice{t: t, total: uint32(len(data)), expected: data}
	tr := newScriptTransport(dev.respond)
	tr.mtu = 256

	var events [][2]uint64
	client := NewClient(tr, ClientConfig{})
	err := client.UploadImage(context.Background(), data, UploadOptions{
		Progress: func(offset, total uint64) {
			events = append(events, [2]uint64{offset, total})
		},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if !bytes.Equal(dev.received, data) {
		t.Fatal("device did not receive the image byte-for-byte")
	}
	if len(tr.sent) < 2 {
		t.Fatalf("expected a chunked upload, got %d requests", len(tr.sent))
	}

	// Every framed request must fit the MTU.
	for i, packet := range tr.sent {
		if got := tr.FramedSize(len(packet)); got > tr.mtu {
			t.Fatalf("request %d exceeds mtu: %d > %d", i, got, tr.mtu)
		}
	}

	// Progress is monotone and ends with the (total, total) event.
	var last uint64
	for _, ev := range events {
		if ev[0] < last {
			t.Fatalf("progress went backwards: %d after %d", ev[0], last)
		}
		last = ev[0]
	}
	final := events[len(events)-1]
	if final[0] != uint64(len(data)) || final[1] != uint64(len(data)) {
		t.Fatalf("final progress event: got %v, want (%d, %d)", final, len(data), len(data))
	}
}

func TestUploadImageSerialFraming(t *testing.T) {
	t.Parallel()

	data := make([]byte, 2000)
	for i := range data {
		data[i] = byte(i)
	}

	dev := &uploadDevice{t: t, total: uint32(len(data)), expected: data}
	tr := newScriptTransport(dev.respond)
	tr.mtu = DefaultMTU
	tr.lineLen = DefaultLineLength

	client := NewClient(tr, ClientConfig{})
	if err := client.UploadImage(context.Background(), data, UploadOptions{}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if !bytes.Equal(dev.received, data) {
		t.Fatal("device did not receive the image byte-for-byte")
	}
	for i, packet := range tr.sent {
		if got := tr.FramedSize(len(packet)); got > tr.mtu {
			t.Fatalf("request %d exceeds mtu after serial framing: %d > %d", i, got, tr.mtu)
		}
	}
}

func TestUploadImageResume(t *testing.T) {
	t.Parallel()

	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i % 127)
	}

	// The device holds a matching in-progress image up to offset 480.
	const resumeOff = 480
	deviceOff := uint32(0)

	tr := newScriptTransport(nil)
	tr.respond = func(packet []byte) [][]byte {
		req, err := DecodeCBOR[ImageUploadRequest](packet[headerSize:])
		if err != nil {
			t.Fatalf("decode upload request: %v", err)
		}
		if req.Off == 0 && deviceOff == 0 {
			// matching sha: skip ahead without consuming the chunk
			deviceOff = resumeOff
		} else {
			if req.Off != deviceOff {
				t.Fatalf("chunk offset: got %d, device expects %d", req.Off, deviceOff)
			}
			if req.Len != 0 || req.SHA != nil {
				t.Fatalf("resumed chunk at %d must not repeat len/sha", req.Off)
			}
			deviceOff += uint32(len(req.Data))
		}
		return [][]byte{responsePacket(t, packet, ImageUploadResponse{Off: deviceOff})}
	}

	client := NewClient(tr, ClientConfig{})
	if err := client.UploadImage(context.Background(), data, UploadOptions{}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if deviceOff != uint32(len(data)) {
		t.Fatalf("device offset after upload: got %d, want %d", deviceOff, len(data))
	}

	// The second request must continue from the device-reported offset.
	second, err := DecodeCBOR[ImageUploadRequest](tr.sent[1][headerSize:])
	if err != nil {
		t.Fatalf("decode second request: %v", err)
	}
	if second.Off != resumeOff {
		t.Fatalf("second chunk offset: got %d, want %d", second.Off, resumeOff)
	}
}

func TestUploadImageStallDetected(t *testing.T) {
	t.Parallel()

	data := make([]byte, 100)

	tr := newScriptTransport(nil)
	tr.respond = func(packet []byte) [][]byte {
		// device never advances
		return [][]byte{responsePacket(t, packet, ImageUploadResponse{Off: 0})}
	}

	client := NewClient(tr, ClientConfig{})
	err := client.UploadImage(context.Background(), data, UploadOptions{})

	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %v", err)
	}
}

func TestUploadImageDeviceReject(t *testing.T) {
	t.Parallel()

	data := make([]byte, 100)

	tr := newScriptTransport(nil)
	tr.respond = func(packet []byte) [][]byte {
		return [][]byte{responsePacket(t, packet, map[string]int{"rc": 9})}
	}

	client := NewClient(tr, ClientConfig{})
	err := client.UploadImage(context.Background(), data, UploadOptions{})

	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
	if devErr.Rc != 9 {
		t.Fatalf("rc: got %d, want 9", devErr.Rc)
	}
}

func TestMaxChunkPayloadBoundary(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("image"))

	tests := []struct {
		name    string
		lineLen int
		mtu     int
		off     uint32
	}{
		{name: "udp first chunk", mtu: 512},
		{name: "udp subsequent chunk", mtu: 512, off: 4096},
		{name: "serial first chunk", lineLen: DefaultLineLength, mtu: 512},
		{name: "serial subsequent chunk", lineLen: DefaultLineLength, mtu: 512, off: 4096},
		{name: "serial large mtu", lineLen: DefaultLineLength, mtu: 4096, off: 960},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := newScriptTransport(nil)
			tr.mtu = tt.mtu
			tr.lineLen = tt.lineLen
			client := NewClient(tr, ClientConfig{})

			k, err := client.maxChunkPayload(uploadProbe(0, 100000, tt.off, sum[:]))
			if err != nil {
				t.Fatalf("maxChunkPayload: %v", err)
			}
			if k <= 0 {
				t.Fatal("no payload fits the mtu")
			}

			framedLen := func(payload int) int {
				req := buildUploadRequest(0, 100000, tt.off, sum[:], make([]byte, payload))
				body, err := EncodeCBOR(req)
				if err != nil {
					t.Fatalf("encode request: %v", err)
				}
				return tr.FramedSize(headerSize + len(body))
			}

			if got := framedLen(k); got > tt.mtu {
				t.Fatalf("chunk of %d bytes overflows mtu: %d > %d", k, got, tt.mtu)
			}
			if got := framedLen(k + 1); got <= tt.mtu {
				t.Fatalf("chunk sizing left room on the table: %d bytes still fit (%d <= %d)", k+1, got, tt.mtu)
			}
		})
	}
}

func TestInferSlot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want uint32
	}{
		{path: "firmware-slot1.bin", want: 1},
		{path: "out/app_slot3.signed.bin", want: 3},
		{path: "fw.bin", want: 0},
		{path: "build/SLOT1/zephyr.signed.bin", want: 1},
	}

	for _, tt := range tests {
		if got := InferSlot(tt.path); got != tt.want {
			t.Errorf("InferSlot(%q): got %d, want %d", tt.path, got, tt.want)
		}
	}
}
