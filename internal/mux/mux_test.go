package mux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"small", []byte("hello chainsync")},
		{"exactly max", make([]byte, MaxPayloadSize)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			frames, err := Encode(2, ModeInitiator, 1234, c.payload)
			require.NoError(t, err)
			require.Len(t, frames, 1)

			f, n, err := Decode(frames[0])
			require.NoError(t, err)
			assert.Equal(t, len(frames[0]), n)
			assert.Equal(t, uint16(2), f.ProtocolID)
			assert.Equal(t, ModeInitiator, f.Mode)
			assert.Equal(t, uint32(1234), f.Timestamp)
			assert.Equal(t, c.payload, f.Payload)
		})
	}
}

func TestEncodeSplitsOversizedPayload(t *testing.T) {
	payload := make([]byte, MaxPayloadSize+1)
	for i := range payload {
		payload[i] = byte(i)
	}
	frames, err := Encode(3, ModeResponder, 0, payload)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	var decoded []Frame
	for _, raw := range frames {
		f, n, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, len(raw), n)
		decoded = append(decoded, f)
	}
	assert.Len(t, decoded[0].Payload, MaxPayloadSize)
	assert.Len(t, decoded[1].Payload, 1)

	reassembled, err := Reassemble(decoded)
	require.NoError(t, err)
	assert.Equal(t, payload, reassembled)
}

func TestBoundaryExactlyMaxPayload(t *testing.T) {
	frames, err := Encode(1, ModeInitiator, 0, make([]byte, MaxPayloadSize))
	require.NoError(t, err)
	assert.Len(t, frames, 1)
}

func TestBoundaryOneOverMaxPayload(t *testing.T) {
	frames, err := Encode(1, ModeInitiator, 0, make([]byte, MaxPayloadSize+1))
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestDecodeRejectsShortHeader(t *testing.T) {
	_, _, err := Decode([]byte{0x00, 0x01, 0x02})
	assert.Error(t, err)
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	frames, err := Encode(1, ModeInitiator, 0, []byte("hello"))
	require.NoError(t, err)
	_, _, err = Decode(frames[0][:HeaderSize+2])
	assert.Error(t, err)
}

func TestModeAndProtocolIDPacking(t *testing.T) {
	frames, err := Encode(0x1234&0x7FFF, ModeResponder, 0, []byte("x"))
	require.NoError(t, err)
	f, _, err := Decode(frames[0])
	require.NoError(t, err)
	assert.Equal(t, ModeResponder, f.Mode)
	assert.Equal(t, uint16(0x1234&0x7FFF), f.ProtocolID)
}

func TestReassembleRejectsMixedStreams(t *testing.T) {
	a, err := Encode(1, ModeInitiator, 0, []byte("a"))
	require.NoError(t, err)
	b, err := Encode(2, ModeInitiator, 0, []byte("b"))
	require.NoError(t, err)
	fa, _, _ := Decode(a[0])
	fb, _, _ := Decode(b[0])
	_, err = Reassemble([]Frame{fa, fb})
	assert.Error(t, err)
}
