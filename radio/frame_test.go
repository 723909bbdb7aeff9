package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{"number", Frame{Group: 10, Kind: KindNumber, Serial: 0xdeadbeef, Payload: numberPayload(1 << 20)}},
		{"empty buffer", Frame{Group: 0, Kind: KindBuffer, Serial: 1, Payload: []byte{}}},
		{"full buffer", Frame{Group: 255, Kind: KindBuffer, Serial: 2, Payload: make([]byte, MaxBufferLen)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeFrame(tt.frame)
			require.NoError(t, err)
			assert.Equal(t, byte(len(data)-1), data[0])
			assert.Equal(t, byte(FrameTerminal), data[len(data)-1])

			got, err := DecodeFrame(data)
			require.NoError(t, err)
			assert.Equal(t, tt.frame, got)
		})
	}
}

func TestEncodeFrameTooLarge(t *testing.T) {
	_, err := EncodeFrame(Frame{Kind: KindBuffer, Payload: make([]byte, MaxBufferLen+1)})
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecodeFrameRejects(t *testing.T) {
	good, err := EncodeFrame(Frame{Group: 1, Kind: KindNumber, Serial: 7, Payload: numberPayload(3)})
	require.NoError(t, err)

	corrupt := func(fn func([]byte) []byte) []byte {
		return fn(append([]byte(nil), good...))
	}

	tests := map[string][]byte{
		"empty":        nil,
		"short":        good[:5],
		"truncated":    good[:len(good)-1],
		"bad length":   corrupt(func(b []byte) []byte { b[0]++; return b }),
		"bad terminal": corrupt(func(b []byte) []byte { b[len(b)-1] = 0; return b }),
		"bad crc":      corrupt(func(b []byte) []byte { b[1] ^= 0xff; return b }),
		"payload flip": corrupt(func(b []byte) []byte { b[headerSize] ^= 1; return b }),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeFrame(data)
			assert.ErrorIs(t, err, ErrInvalidFrame)
		})
	}
}

func TestValuePayload(t *testing.T) {
	p, err := valuePayload("pairing", 1)
	require.NoError(t, err)
	name, v, err := parseValue(p)
	require.NoError(t, err)
	assert.Equal(t, "pairing", name)
	assert.Equal(t, uint32(1), v)

	_, err = valuePayload("toolongname", 1)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, _, err = parseValue([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidFrame)
	_, err = parseNumber([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidFrame)
}
