package smp

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEmptyMap is the body of a parameterless request. MCUmgr expects an
// empty map rather than no body at all.
var cborEmptyMap = []byte{0xa0}

// EncodeCBOR encodes an SMP request body. A nil value encodes as the empty
// map.
func EncodeCBOR(v any) ([]byte, error) {
	if v == nil {
		return cborEmptyMap, nil
	}
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode CBOR: %w", err)
	}
	return data, nil
}

// DecodeCBOR decodes an SMP response body into a value of type T.
func DecodeCBOR[T any](data []byte) (T, error) {
	var val T
	if err := cbor.Unmarshal(data, &val); err != nil {
		return val, fmt.Errorf("decode CBOR: %w", err)
	}
	return val, nil
}

// DecodeCBORInto decodes an SMP response body into v. Unknown map keys are
// ignored, matching the protocol convention that clients skip fields they do
// not recognize.
func DecodeCBORInto(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode CBOR: %w", err)
	}
	return nil
}

// responseError probes a response body for the legacy rc field and the SMP v2
// err map, and converts a non-zero code into a *DeviceError.
func responseError(group uint16, body []byte) error {
	if len(body) == 0 {
		return nil
	}

	var probe struct {
		Rc  int         `cbor:"rc,omitempty"`
		Err *GroupError `cbor:"err,omitempty"`
	}
	if err := cbor.Unmarshal(body, &probe); err != nil {
		// Not a map we understand; the typed decode will report it.
		return nil
	}

	if probe.Err != nil && probe.Err.Rc != 0 {
		return &DeviceError{Group: probe.Err.Group, Rc: probe.Err.Rc}
	}
	if probe.Rc != 0 {
		return &DeviceError{Group: group, Rc: probe.Rc}
	}
	return nil
}
