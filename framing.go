package smp

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/sigurn/crc16"
)

// Serial frame markers: the first line of a frame and its continuations.
var (
	frameStartMarker = []byte{0x06, 0x09}
	frameContMarker  = []byte{0x04, 0x14}
)

// Per line: two marker bytes, the newline, and one byte of slack. The usable
// base64 payload per line is lineLength minus this.
const frameLineOverhead = 4

// CRC16-CCITT, poly 0x1021, init 0, no reflection, no XOR-out.
var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// EncodeFrame wraps one SMP packet in serial line framing: a big-endian
// packet length, the packet, and the CRC16 of the packet, base64-encoded and
// split into marker-prefixed newline-terminated lines of at most lineLength
// bytes.
func EncodeFrame(packet []byte, lineLength int) ([]byte, error) {
	if lineLength <= frameLineOverhead {
		return nil, fmt.Errorf("line length %d leaves no room for payload", lineLength)
	}
	if len(packet) > 0xffff {
		return nil, fmt.Errorf("packet too large for framing: %d bytes", len(packet))
	}

	raw := make([]byte, 0, len(packet)+4)
	raw = binary.BigEndian.AppendUint16(raw, uint16(len(packet)))
	raw = append(raw, packet...)
	raw = binary.BigEndian.AppendUint16(raw, crc16.Checksum(packet, crcTable))

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(encoded, raw)

	var out bytes.Buffer
	for written := 0; written < len(encoded); {
		if written == 0 {
			out.Write(frameStartMarker)
		} else {
			out.Write(frameContMarker)
		}
		n := min(lineLength-frameLineOverhead, len(encoded)-written)
		out.Write(encoded[written : written+n])
		out.WriteByte('\n')
		written += n
	}
	return out.Bytes(), nil
}

// FramedSize reports the on-wire size of a packet of packetLen bytes after
// serial framing with the given line length.
func FramedSize(packetLen, lineLength int) int {
	encoded := base64.StdEncoding.EncodedLen(packetLen + 4)
	perLine := lineLength - frameLineOverhead
	lines := (encoded + perLine - 1) / perLine
	return encoded + 3*lines
}

// frameDecoder reassembles SMP packets from marker-framed base64 lines.
// Bytes outside start/continuation markers, typically device console output
// interleaved with the frames, are ignored.
type frameDecoder struct {
	b64     []byte
	inFrame bool
}

func (d *frameDecoder) reset() {
	d.b64 = d.b64[:0]
	d.inFrame = false
}

// Line consumes one line (without its newline terminator) and returns a
// completed packet, nil when more lines are needed, or a *FramingError for a
// corrupt frame. After an error the decoder is ready for the next frame.
func (d *frameDecoder) Line(line []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(line, frameStartMarker):
		d.reset()
		d.inFrame = true
		d.b64 = append(d.b64, line[len(frameStartMarker):]...)
	case bytes.HasPrefix(line, frameContMarker):
		if !d.inFrame {
			return nil, nil
		}
		d.b64 = append(d.b64, line[len(frameContMarker):]...)
	default:
		// console noise between frames
		return nil, nil
	}

	// A finished frame always base64-decodes in whole blocks; a partial
	// accumulation may not, so wait for more lines in that case.
	if len(d.b64)%4 != 0 {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(string(d.b64))
	if err != nil {
		d.reset()
		return nil, &FramingError{Reason: fmt.Sprintf("bad base64: %v", err)}
	}
	if len(decoded) < 2 {
		return nil, nil
	}

	want := int(binary.BigEndian.Uint16(decoded))
	if len(decoded) < 2+want+2 {
		return nil, nil
	}
	d.reset()
	if len(decoded) > 2+want+2 {
		return nil, &FramingError{Reason: fmt.Sprintf(
			"frame longer than declared: %d bytes, declared %d", len(decoded)-4, want)}
	}

	packet := decoded[2 : 2+want]
	readCRC := binary.BigEndian.Uint16(decoded[2+want:])
	if calc := crc16.Checksum(packet, crcTable); calc != readCRC {
		return nil, &FramingError{Reason: fmt.Sprintf("crc mismatch: read %04x, calculated %04x", readCRC, calc)}
	}
	return packet, nil
}
