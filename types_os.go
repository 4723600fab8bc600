package smp

type EchoRequest struct {
	D string `cbor:"d"`
}

type EchoResponse struct {
	R string `cbor:"r"`
}

// TaskInfo holds the per-task counters of the taskstat command. Devices omit
// counters they do not track; those decode as zero.
type TaskInfo struct {
	Prio        int32  `cbor:"prio"`
	TID         uint32 `cbor:"tid"`
	State       uint64 `cbor:"state"`
	StkUse      uint64 `cbor:"stkuse"`
	StkSiz      uint64 `cbor:"stksiz"`
	CSwCnt      uint64 `cbor:"cswcnt"`
	Runtime     uint64 `cbor:"runtime"`
	LastCheckin uint64 `cbor:"last_checkin"`
	NextCheckin uint64 `cbor:"next_checkin"`
}

type TaskStatResponse struct {
	Tasks map[string]TaskInfo `cbor:"tasks"`
}

type McumgrParamsResponse struct {
	BufSize  uint32 `cbor:"buf_size"`
	BufCount uint32 `cbor:"buf_count"`
}

// OSInfoRequest selects output fields with single-character format codes
// (s=kernel, n=node, r=release, v=version, b=build, m=machine, p=processor,
// i=platform, o=os, a=all, h=hardware id on devices with the custom hook).
type OSInfoRequest struct {
	Format string `cbor:"format,omitempty"`
}

type OSInfoResponse struct {
	Output string `cbor:"output"`
}

type BootloaderInfoRequest struct {
	Query string `cbor:"query,omitempty"`
}

// BootloaderInfoResponse is decoded field-driven: upstream versions disagree
// on which fields a given query returns, so everything is optional.
type BootloaderInfoResponse struct {
	Bootloader  string `cbor:"bootloader,omitempty"`
	Mode        *int   `cbor:"mode,omitempty"`
	NoDowngrade *bool  `cbor:"no-downgrade,omitempty"`
	Active      *int   `cbor:"active,omitempty"`
}

type ResetRequest struct {
	// MCUmgr accepts force as a boolean even though the protocol declares
	// an int.
	Force bool `cbor:"force,omitempty"`
}
