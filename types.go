package smp

// GroupError is the SMP v2 error map carried in place of the legacy rc
// field.
type GroupError struct {
	Group uint16 `cbor:"group"`
	Rc    int    `cbor:"rc"`
}

// ImageStateEntry describes one image slot as reported by the device.
type ImageStateEntry struct {
	Image     uint32 `cbor:"image,omitempty"`
	Slot      uint32 `cbor:"slot"`
	Version   string `cbor:"version"`
	Hash      []byte `cbor:"hash,omitempty"`
	Bootable  bool   `cbor:"bootable,omitempty"`
	Pending   bool   `cbor:"pending,omitempty"`
	Confirmed bool   `cbor:"confirmed,omitempty"`
	Active    bool   `cbor:"active,omitempty"`
	Permanent bool   `cbor:"permanent,omitempty"`
}

// ImageStateResponse is returned by both the state read and the state write
// (test/confirm) commands.
type ImageStateResponse struct {
	Images      []ImageStateEntry `cbor:"images"`
	SplitStatus int               `cbor:"splitStatus,omitempty"`
}

// ImageTestRequest marks the image with the given hash for test on the next
// boot, or confirms it permanently.
type ImageTestRequest struct {
	Hash    []byte `cbor:"hash"`
	Confirm *bool  `cbor:"confirm,omitempty"`
}

// ImageUploadRequest is one chunk of a streaming image upload. Only the
// first chunk (Off == 0) carries Image, Len and SHA.
type ImageUploadRequest struct {
	Image   uint32 `cbor:"image,omitempty"`
	Len     uint32 `cbor:"len,omitempty"`
	Off     uint32 `cbor:"off"`
	SHA     []byte `cbor:"sha,omitempty"`
	Data    []byte `cbor:"data"`
	Upgrade bool   `cbor:"upgrade,omitempty"`
}

// ImageUploadResponse acknowledges a chunk. Off is the next offset the
// device expects and is authoritative.
type ImageUploadResponse struct {
	Off   uint32 `cbor:"off"`
	Match bool   `cbor:"match,omitempty"`
}

type ImageEraseRequest struct {
	Slot *uint32 `cbor:"slot,omitempty"`
}
