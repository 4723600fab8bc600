package smp

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
)

// ProgressFunc receives the acknowledged offset and the total length after
// every accepted chunk of a transfer. offset == total marks completion.
type ProgressFunc func(offset, total uint64)

// ImageState lists the image slots and their flags.
func (c *Client) ImageState(ctx context.Context) (*ImageStateResponse, error) {
	var rsp ImageStateResponse
	if err := c.Call(ctx, OpRead, GroupImage, CmdImageState, nil, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// ImageTest marks the image with the given hash for test on the next boot.
// With confirm set to true the image is confirmed permanently; the call is
// idempotent once the image is confirmed.
func (c *Client) ImageTest(ctx context.Context, hash []byte, confirm *bool) (*ImageStateResponse, error) {
	var rsp ImageStateResponse
	req := ImageTestRequest{Hash: hash, Confirm: confirm}
	if err := c.Call(ctx, OpWrite, GroupImage, CmdImageState, req, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// ImageErase erases an image slot. A nil slot erases the default (inactive)
// slot.
func (c *Client) ImageErase(ctx context.Context, slot *uint32) error {
	return c.Call(ctx, OpWrite, GroupImage, CmdImageErase, ImageEraseRequest{Slot: slot}, nil)
}

// UploadOptions tunes UploadImage.
type UploadOptions struct {
	// Slot is the target image slot; the zero value selects slot 0.
	Slot uint32
	// Progress, if set, is invoked after every acknowledged chunk.
	Progress ProgressFunc
}

// InferSlot derives the target slot from a firmware file name: paths
// containing "slot1" or "slot3" select those slots, anything else slot 0.
func InferSlot(path string) uint32 {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "slot1"):
		return 1
	case strings.Contains(lower, "slot3"):
		return 3
	default:
		return 0
	}
}

// UploadImage streams a firmware image to the device.
//
// The first chunk carries the total length, the SHA-256 of the image and the
// target slot; the device uses the hash to identify an in-progress upload,
// so an interrupted transfer restarted with the same file resumes at the
// offset the device reports. Every subsequent chunk carries only its offset
// and data. The device is authoritative about the accepted offset.
//
// Chunks are sized so the framed request fits within the transport MTU;
// retransmission on timeout is handled by Call.
func (c *Client) UploadImage(ctx context.Context, data []byte, opts UploadOptions) error {
	sum := sha256.Sum256(data)
	total := uint32(len(data))

	slog.Info("upload image", "len", total, "slot", opts.Slot)

	var off uint32
	for off < total {
		chunk, err := c.maxChunkPayload(uploadProbe(opts.Slot, total, off, sum[:]))
		if err != nil {
			return err
		}
		if chunk <= 0 {
			return fmt.Errorf("mtu %d too small for upload envelope", c.transport.MTU())
		}

		end := min(off+uint32(chunk), total)
		req := buildUploadRequest(opts.Slot, total, off, sum[:], data[off:end])

		var rsp ImageUploadResponse
		if err := c.Call(ctx, OpWrite, GroupImage, CmdImageUpload, req, &rsp); err != nil {
			return err
		}
		if rsp.Off > total {
			return &ProtocolError{Reason: fmt.Sprintf("device reported offset %d beyond image length %d", rsp.Off, total)}
		}
		if rsp.Off <= off && end > off {
			return &ProtocolError{Reason: fmt.Sprintf("upload stalled at offset %d", off)}
		}
		off = rsp.Off

		if opts.Progress != nil {
			opts.Progress(uint64(off), uint64(total))
		}
	}
	return nil
}

// buildUploadRequest assembles one upload chunk. Only the first chunk
// carries the image identity fields.
func buildUploadRequest(slot, total, off uint32, sha, data []byte) ImageUploadRequest {
	req := ImageUploadRequest{
		Off:  off,
		Data: data,
	}
	if off == 0 {
		req.Image = slot
		req.Len = total
		req.SHA = sha
	}
	return req
}

// uploadProbe is a chunk with empty data, used to measure the envelope.
func uploadProbe(slot, total, off uint32, sha []byte) ImageUploadRequest {
	probe := buildUploadRequest(slot, total, off, sha, nil)
	probe.Data = []byte{}
	return probe
}

// maxChunkPayload computes the largest data payload such that the request
// body wrapped in the SMP header and the transport framing stays within the
// MTU. probe must be the request with an empty data field; the data byte
// string then grows by its CBOR length header plus the payload itself.
func (c *Client) maxChunkPayload(probe any) (int, error) {
	enc, err := EncodeCBOR(probe)
	if err != nil {
		return 0, fmt.Errorf("encode chunk probe: %w", err)
	}
	// minus the 1-byte empty byte string the probe carries
	base := len(enc) - 1

	mtu := c.transport.MTU()
	fits := func(k int) bool {
		body := base + cborBytesOverhead(k) + k
		return c.transport.FramedSize(headerSize+body) <= mtu
	}

	lo, hi := 0, mtu
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// cborBytesOverhead is the size of the CBOR byte-string header for a payload
// of n bytes.
func cborBytesOverhead(n int) int {
	switch {
	case n < 24:
		return 1
	case n < 1<<8:
		return 2
	case n < 1<<16:
		return 3
	default:
		return 5
	}
}
