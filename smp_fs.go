package smp

import (
	"context"
	"fmt"
	"log/slog"
)

// Hash types accepted by FSHash.
const (
	HashTypeSHA256 = "sha256"
	HashTypeCRC32  = "crc32"
)

// FSDownload reads the file at name from the device. The first response
// window carries the total length; subsequent requests advance the offset by
// the bytes received until the whole file has arrived.
func (c *Client) FSDownload(ctx context.Context, name string, progress ProgressFunc) ([]byte, error) {
	slog.Info("download file", "name", name)

	var out []byte
	var off, total uint32
	haveTotal := false

	for {
		req := FSDownloadRequest{Name: name, Off: off}
		var rsp FSDownloadResponse
		if err := c.Call(ctx, OpRead, GroupFS, CmdFSFile, req, &rsp); err != nil {
			return nil, err
		}

		if off == 0 {
			if rsp.Len == nil {
				return nil, &ProtocolError{Reason: "first download response carries no file length"}
			}
			total = *rsp.Len
			haveTotal = true
		}

		out = append(out, rsp.Data...)
		off = rsp.Off + uint32(len(rsp.Data))

		if progress != nil && haveTotal {
			progress(uint64(off), uint64(total))
		}

		if haveTotal && off >= total {
			break
		}
		if len(rsp.Data) == 0 {
			return nil, &ProtocolError{Reason: fmt.Sprintf("download stalled at offset %d of %d", off, total)}
		}
	}
	return out, nil
}

// FSUpload writes data to the file at name on the device. The first window
// carries the total length; the device is authoritative about the accepted
// offset.
func (c *Client) FSUpload(ctx context.Context, name string, data []byte, progress ProgressFunc) error {
	total := uint32(len(data))

	slog.Info("upload file", "name", name, "len", total)

	var off uint32
	for off < total {
		chunk, err := c.maxChunkPayload(fsUploadProbe(name, total, off))
		if err != nil {
			return err
		}
		if chunk <= 0 {
			return fmt.Errorf("mtu %d too small for upload envelope", c.transport.MTU())
		}

		end := min(off+uint32(chunk), total)
		req := FSUploadRequest{Name: name, Off: off, Data: data[off:end]}
		if off == 0 {
			req.Len = &total
		}

		var rsp FSUploadResponse
		if err := c.Call(ctx, OpWrite, GroupFS, CmdFSFile, req, &rsp); err != nil {
			return err
		}
		if rsp.Off > total {
			return &ProtocolError{Reason: fmt.Sprintf("device reported offset %d beyond file length %d", rsp.Off, total)}
		}
		if rsp.Off <= off && end > off {
			return &ProtocolError{Reason: fmt.Sprintf("upload stalled at offset %d", off)}
		}
		off = rsp.Off

		if progress != nil {
			progress(uint64(off), uint64(total))
		}
	}

	// Empty files still need the length-bearing first request.
	if total == 0 {
		req := FSUploadRequest{Name: name, Off: 0, Data: []byte{}, Len: &total}
		if err := c.Call(ctx, OpWrite, GroupFS, CmdFSFile, req, nil); err != nil {
			return err
		}
		if progress != nil {
			progress(0, 0)
		}
	}
	return nil
}

// fsUploadProbe is an upload window with empty data, used to measure the
// envelope.
func fsUploadProbe(name string, total, off uint32) FSUploadRequest {
	probe := FSUploadRequest{Name: name, Off: off, Data: []byte{}}
	if off == 0 {
		probe.Len = &total
	}
	return probe
}

// FSStat reports the size of the file at name.
func (c *Client) FSStat(ctx context.Context, name string) (*FSStatResponse, error) {
	var rsp FSStatResponse
	if err := c.Call(ctx, OpRead, GroupFS, CmdFSStat, FSStatRequest{Name: name}, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// FSHash asks the device to hash the file at name. An empty hashType
// selects sha256; crc32 is the only other supported type.
func (c *Client) FSHash(ctx context.Context, name, hashType string) (*FSHashResponse, error) {
	switch hashType {
	case "", HashTypeSHA256, HashTypeCRC32:
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported hash type %q", hashType)}
	}

	var rsp FSHashResponse
	req := FSHashRequest{Name: name, Type: hashType}
	if err := c.Call(ctx, OpRead, GroupFS, CmdFSHash, req, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}
