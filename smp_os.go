package smp

import (
	"context"
	"log/slog"
	"strings"
)

// Echo sends msg to the device and returns the echoed reply.
func (c *Client) Echo(ctx context.Context, msg string) (string, error) {
	var rsp EchoResponse
	if err := c.Call(ctx, OpWrite, GroupOS, CmdEcho, EchoRequest{D: msg}, &rsp); err != nil {
		return "", err
	}
	return rsp.R, nil
}

// TaskStat reads the per-task statistics.
func (c *Client) TaskStat(ctx context.Context) (*TaskStatResponse, error) {
	var rsp TaskStatResponse
	if err := c.Call(ctx, OpRead, GroupOS, CmdTaskStat, nil, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// McumgrParams reads the device's SMP buffer size and count.
func (c *Client) McumgrParams(ctx context.Context) (*McumgrParamsResponse, error) {
	var rsp McumgrParamsResponse
	if err := c.Call(ctx, OpRead, GroupOS, CmdMcumgrParams, nil, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// OSInfo queries kernel and application information. Characters in format
// select the fields, "a" selects all of them.
func (c *Client) OSInfo(ctx context.Context, format string) (string, error) {
	var req any
	if format != "" {
		req = OSInfoRequest{Format: format}
	}
	var rsp OSInfoResponse
	if err := c.Call(ctx, OpRead, GroupOS, CmdOSInfo, req, &rsp); err != nil {
		return "", err
	}
	return rsp.Output, nil
}

// BootloaderInfo queries the bootloader. An empty query returns the full
// info; "mode" returns the MCUboot operating mode.
func (c *Client) BootloaderInfo(ctx context.Context, query string) (*BootloaderInfoResponse, error) {
	var req any
	if query != "" {
		req = BootloaderInfoRequest{Query: query}
	}
	var rsp BootloaderInfoResponse
	if err := c.Call(ctx, OpRead, GroupOS, CmdBootloaderInfo, req, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}

// HardwareID reads the chip hardware ID via the os-info "h" format, a custom
// hook not present on all devices. The reported value is uppercased hex.
func (c *Client) HardwareID(ctx context.Context) (string, error) {
	out, err := c.OSInfo(ctx, "h")
	if err != nil {
		return "", err
	}
	out = strings.TrimPrefix(out, "hwid:")
	return strings.ToUpper(strings.TrimSpace(out)), nil
}

// Reset reboots the device. The response usually arrives before the reboot.
func (c *Client) Reset(ctx context.Context) error {
	slog.Info("send reset request")
	return c.Call(ctx, OpWrite, GroupOS, CmdReset, nil, nil)
}

// MCUbootModeName translates the bootloader-info mode value.
func MCUbootModeName(mode int) string {
	switch mode {
	case 0:
		return "Single application"
	case 1:
		return "Swap using scratch partition"
	case 2:
		return "Overwrite (upgrade-only)"
	case 3:
		return "Swap without scratch"
	case 4:
		return "Direct XIP without revert"
	case 5:
		return "Direct XIP with revert"
	case 6:
		return "RAM loader"
	case 7:
		return "Firmware loader"
	case 8:
		return "RAM load with network core"
	case 9:
		return "Swap using move"
	default:
		return "Unknown"
	}
}
