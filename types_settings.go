package smp

type SettingsReadRequest struct {
	Name    string  `cbor:"name"`
	MaxSize *uint32 `cbor:"max_size,omitempty"`
}

type SettingsReadResponse struct {
	Val []byte `cbor:"val"`
}

type SettingsWriteRequest struct {
	Name string `cbor:"name"`
	Val  []byte `cbor:"val"`
}

type SettingsDeleteRequest struct {
	Name string `cbor:"name"`
}
