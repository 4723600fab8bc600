package smp

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when no valid response frame arrived before the
// deadline and the retransmission budget is exhausted.
var ErrTimeout = errors.New("timeout waiting for response")

// ConfigError reports an unusable invocation: no serial device present, an
// ambiguous device choice, bad hex input, a missing file.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

// DeviceError is an SMP application error: the device answered the request
// with a non-zero rc. It is never retried.
type DeviceError struct {
	Group uint16
	Rc    int
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s management error: rc=%d (%s)", groupName(e.Group), e.Rc, rcName(e.Rc))
}

// FramingError reports a corrupt serial frame: CRC mismatch, bad base64 or a
// frame longer than its declared length. The receiver drops the frame and
// keeps waiting for a valid one.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return "framing: " + e.Reason
}

// ProtocolError reports a fatal SMP-level fault, such as a response body that
// does not decode.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol: " + e.Reason
}

func groupName(group uint16) string {
	switch group {
	case GroupOS:
		return "os"
	case GroupImage:
		return "image"
	case GroupStat:
		return "stat"
	case GroupSettings:
		return "settings"
	case GroupFS:
		return "fs"
	case GroupShell:
		return "shell"
	default:
		return fmt.Sprintf("group %d", group)
	}
}

// rcName maps the classic MCUmgr error codes to their names; codes above 10
// map to "unknown". The group-specific codes of an SMP v2 err map are looked
// up in the same table.
func rcName(rc int) string {
	switch rc {
	case 0:
		return "ok"
	case 1:
		return "unknown error"
	case 2:
		return "out of memory"
	case 3:
		return "invalid value"
	case 4:
		return "timeout"
	case 5:
		return "no entry"
	case 6:
		return "bad state"
	case 7:
		return "response too large"
	case 8:
		return "not supported"
	case 9:
		return "corrupt payload"
	case 10:
		return "busy"
	default:
		return "unknown"
	}
}
