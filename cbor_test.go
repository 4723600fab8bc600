package smp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeCBORNilIsEmptyMap(t *testing.T) {
	t.Parallel()

	data, err := EncodeCBOR(nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0xa0}, data)
}

func TestResponseError(t *testing.T) {
	t.Parallel()

	encode := func(v any) []byte {
		data, err := EncodeCBOR(v)
		require.NoError(t, err)
		return data
	}

	t.Run("clean response", func(t *testing.T) {
		require.NoError(t, responseError(GroupOS, encode(EchoResponse{R: "ok"})))
	})

	t.Run("empty body", func(t *testing.T) {
		require.NoError(t, responseError(GroupOS, nil))
	})

	t.Run("legacy rc", func(t *testing.T) {
		err := responseError(GroupImage, encode(map[string]int{"rc": 5}))
		var devErr *DeviceError
		require.True(t, errors.As(err, &devErr))
		require.Equal(t, GroupImage, devErr.Group)
		require.Equal(t, 5, devErr.Rc)
	})

	t.Run("v2 err map", func(t *testing.T) {
		err := responseError(GroupImage, encode(map[string]GroupError{"err": {Group: GroupFS, Rc: 2}}))
		var devErr *DeviceError
		require.True(t, errors.As(err, &devErr))
		require.Equal(t, GroupFS, devErr.Group)
		require.Equal(t, 2, devErr.Rc)
	})

	t.Run("zero rc is success", func(t *testing.T) {
		require.NoError(t, responseError(GroupOS, encode(map[string]int{"rc": 0})))
	})
}

func TestBodyRoundTrips(t *testing.T) {
	t.Parallel()

	maxSize := uint32(64)
	fileLen := uint32(1500)
	confirm := true

	tests := []struct {
		name   string
		decode func(t *testing.T, data []byte)
		value  any
	}{
		{
			name:  "echo request",
			value: EchoRequest{D: "hello"},
			decode: func(t *testing.T, data []byte) {
				got, err := DecodeCBOR[EchoRequest](data)
				require.NoError(t, err)
				require.Equal(t, "hello", got.D)
			},
		},
		{
			name: "image state response",
			value: ImageStateResponse{Images: []ImageStateEntry{{
				Slot:      0,
				Version:   "1.2.3",
				Hash:      []byte{0xde, 0xad, 0xbe, 0xef},
				Bootable:  true,
				Active:    true,
				Confirmed: true,
			}}},
			decode: func(t *testing.T, data []byte) {
				got, err := DecodeCBOR[ImageStateResponse](data)
				require.NoError(t, err)
				require.Len(t, got.Images, 1)
				require.Equal(t, "1.2.3", got.Images[0].Version)
				require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got.Images[0].Hash)
				require.True(t, got.Images[0].Active)
				require.False(t, got.Images[0].Pending)
			},
		},
		{
			name:  "image test request with confirm",
			value: ImageTestRequest{Hash: []byte{1, 2, 3}, Confirm: &confirm},
			decode: func(t *testing.T, data []byte) {
				got, err := DecodeCBOR[ImageTestRequest](data)
				require.NoError(t, err)
				require.NotNil(t, got.Confirm)
				require.True(t, *got.Confirm)
			},
		},
		{
			name: "taskstat response",
			value: TaskStatResponse{Tasks: map[string]TaskInfo{
				"idle": {Prio: -16, State: 1, StkUse: 100, StkSiz: 1024},
				"main": {Prio: 0, Runtime: 55},
			}},
			decode: func(t *testing.T, data []byte) {
				got, err := DecodeCBOR[TaskStatResponse](data)
				require.NoError(t, err)
				require.Len(t, got.Tasks, 2)
				require.Equal(t, int32(-16), got.Tasks["idle"].Prio)
				require.Equal(t, uint64(55), got.Tasks["main"].Runtime)
			},
		},
		{
			name:  "settings read request with max size",
			value: SettingsReadRequest{Name: "wifi/ssid", MaxSize: &maxSize},
			decode: func(t *testing.T, data []byte) {
				got, err := DecodeCBOR[SettingsReadRequest](data)
				require.NoError(t, err)
				require.Equal(t, "wifi/ssid", got.Name)
				require.NotNil(t, got.MaxSize)
				require.Equal(t, uint32(64), *got.MaxSize)
			},
		},
		{
			name:  "fs download response with length",
			value: FSDownloadResponse{Off: 0, Data: []byte("abc"), Len: &fileLen},
			decode: func(t *testing.T, data []byte) {
				got, err := DecodeCBOR[FSDownloadResponse](data)
				require.NoError(t, err)
				require.NotNil(t, got.Len)
				require.Equal(t, uint32(1500), *got.Len)
				require.Equal(t, []byte("abc"), got.Data)
			},
		},
		{
			name:  "shell exec response",
			value: ShellExecResponse{O: "uptime: 4711\n", Ret: -1},
			decode: func(t *testing.T, data []byte) {
				got, err := DecodeCBOR[ShellExecResponse](data)
				require.NoError(t, err)
				require.Equal(t, "uptime: 4711\n", got.O)
				require.Equal(t, int32(-1), got.Ret)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := EncodeCBOR(tt.value)
			require.NoError(t, err)
			tt.decode(t, data)
		})
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	body, err := EncodeCBOR(map[string]any{
		"r":      "hi",
		"uptime": 4711,
		"extra":  []int{1, 2, 3},
	})
	require.NoError(t, err)

	got, err := DecodeCBOR[EchoResponse](body)
	require.NoError(t, err)
	require.Equal(t, "hi", got.R)
}
