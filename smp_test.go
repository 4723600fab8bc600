package smp

import (
	"bytes"
	"testing"
)

func TestHeaderMarshalParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hdr  Header
	}{
		{
			name: "echo write request",
			hdr:  Header{Op: OpWrite, Length: 6, Group: GroupOS, Seq: 0, Command: CmdEcho},
		},
		{
			name: "image upload response",
			hdr:  Header{Op: OpWriteRsp, Length: 512, Group: GroupImage, Seq: 255, Command: CmdImageUpload},
		},
		{
			name: "fs read request",
			hdr:  Header{Op: OpRead, Length: 0x1234, Group: GroupFS, Seq: 42, Command: CmdFSFile},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			packed := tt.hdr.Marshal()
			if len(packed) != headerSize {
				t.Fatalf("marshal size: got %d, want %d", len(packed), headerSize)
			}

			parsed, err := ParseHeader(append(packed, make([]byte, tt.hdr.Length)...))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if parsed != tt.hdr {
				t.Fatalf("round trip: got %+v, want %+v", parsed, tt.hdr)
			}
		})
	}
}

func TestHeaderWireLayout(t *testing.T) {
	t.Parallel()

	hdr := Header{Op: OpWrite, Length: 6, Group: GroupOS, Seq: 0, Command: CmdEcho}
	want := []byte{0x02, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 0x00}
	if got := hdr.Marshal(); !bytes.Equal(got, want) {
		t.Fatalf("wire layout: got % x, want % x", got, want)
	}
}

func TestParseHeaderMasksVersionBits(t *testing.T) {
	t.Parallel()

	// SMP v2 stacks set the version field in the upper bits of byte 0.
	packet := []byte{0x0b, 0x00, 0x00, 0x00, 0x00, 0x01, 0x07, 0x01}
	hdr, err := ParseHeader(packet)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if hdr.Op != OpWriteRsp {
		t.Fatalf("op: got %d, want %d", hdr.Op, OpWriteRsp)
	}
	if hdr.Group != GroupImage || hdr.Seq != 7 || hdr.Command != CmdImageUpload {
		t.Fatalf("unexpected header: %+v", hdr)
	}
}

func TestParseHeaderTooShort(t *testing.T) {
	t.Parallel()

	if _, err := ParseHeader([]byte{0x02, 0x00, 0x00}); err == nil {
		t.Fatal("expected an error for an undersized packet")
	}
}
