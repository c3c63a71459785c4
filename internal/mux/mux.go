// Package mux implements Ouroboros's multiplexing wire format: an 8-byte
// frame header (transmission time, mode+protocol id, payload length)
// followed by up to MaxPayloadSize bytes of payload, per spec.md §4.A.
//
// The shape mirrors smythg4-go-bitcoin/internal/network's
// NewNetworkEnvelope/ParseNetworkEnvelope pair (fixed header + payload,
// Encode/Decode round trip) adapted to Ouroboros's own header layout.
package mux

import (
	"encoding/binary"
	"fmt"
)

// MaxPayloadSize is the largest payload a single frame may carry; larger
// payloads are split across consecutive frames with identical
// (ProtocolID, Mode).
const MaxPayloadSize = 12288

// HeaderSize is the fixed 8-byte MUX frame header.
const HeaderSize = 8

// Mode distinguishes which side of a mini-protocol sent a frame.
type Mode uint8

const (
	ModeInitiator Mode = 0
	ModeResponder Mode = 1
)

// Frame is one decoded MUX segment.
type Frame struct {
	Timestamp  uint32 // monotonic microseconds mod 2^32, big-endian on wire
	Mode       Mode
	ProtocolID uint16 // 15 bits on the wire
	Payload    []byte
}

// Encode splits payload into one or more frames of identical
// (protocolID, mode) and serializes each to wire bytes. Handshake
// messages (protocol id 0, n2n.ProtocolHandshake) must never be split; the
// caller is responsible for keeping handshake payloads under
// MaxPayloadSize.
func Encode(protocolID uint16, mode Mode, timestamp uint32, payload []byte) ([][]byte, error) {
	if protocolID > 0x7FFF {
		return nil, fmt.Errorf("mux: protocol id %d exceeds 15 bits", protocolID)
	}
	if len(payload) == 0 {
		return [][]byte{encodeFrame(protocolID, mode, timestamp, nil)}, nil
	}
	var frames [][]byte
	for off := 0; off < len(payload); off += MaxPayloadSize {
		end := off + MaxPayloadSize
		if end > len(payload) {
			end = len(payload)
		}
		frames = append(frames, encodeFrame(protocolID, mode, timestamp, payload[off:end]))
	}
	return frames, nil
}

func encodeFrame(protocolID uint16, mode Mode, timestamp uint32, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], timestamp)
	modeProto := protocolID & 0x7FFF
	if mode == ModeResponder {
		modeProto |= 0x8000
	}
	binary.BigEndian.PutUint16(buf[4:6], modeProto)
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// DecodeHeader parses just the 8-byte frame header, returning the frame
// (with a nil Payload) and the payload length still to be read off the
// wire. Used by streaming readers that read the header and payload in
// two separate socket reads.
func DecodeHeader(header []byte) (Frame, int, error) {
	if len(header) != HeaderSize {
		return Frame{}, 0, fmt.Errorf("mux: header must be exactly %d bytes, got %d", HeaderSize, len(header))
	}
	timestamp := binary.BigEndian.Uint32(header[0:4])
	modeProto := binary.BigEndian.Uint16(header[4:6])
	mode := Mode((modeProto >> 15) & 0x1)
	protocolID := modeProto & 0x7FFF
	length := int(binary.BigEndian.Uint16(header[6:8]))
	return Frame{Timestamp: timestamp, Mode: mode, ProtocolID: protocolID}, length, nil
}

// Decode parses exactly one frame header + payload from buf. It returns
// the frame and the number of bytes consumed. A total function on
// well-formed headers; the caller is responsible for feeding at least
// HeaderSize bytes, and at least HeaderSize+PayloadLength bytes to
// extract the payload.
func Decode(buf []byte) (Frame, int, error) {
	if len(buf) < HeaderSize {
		return Frame{}, 0, fmt.Errorf("mux: short header: need %d bytes, have %d", HeaderSize, len(buf))
	}
	timestamp := binary.BigEndian.Uint32(buf[0:4])
	modeProto := binary.BigEndian.Uint16(buf[4:6])
	mode := Mode((modeProto >> 15) & 0x1)
	protocolID := modeProto & 0x7FFF
	length := int(binary.BigEndian.Uint16(buf[6:8]))
	total := HeaderSize + length
	if len(buf) < total {
		return Frame{}, 0, fmt.Errorf("mux: short payload: need %d bytes, have %d", total, len(buf))
	}
	payload := make([]byte, length)
	copy(payload, buf[HeaderSize:total])
	return Frame{
		Timestamp:  timestamp,
		Mode:       mode,
		ProtocolID: protocolID,
		Payload:    payload,
	}, total, nil
}

// Reassemble concatenates the payloads of a run of frames sharing the
// same (ProtocolID, Mode), in arrival order, reconstructing the original
// unsplit message.
func Reassemble(frames []Frame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	protocolID, mode := frames[0].ProtocolID, frames[0].Mode
	var out []byte
	for _, f := range frames {
		if f.ProtocolID != protocolID || f.Mode != mode {
			return nil, fmt.Errorf("mux: cannot reassemble frames from different (protocol,mode) streams")
		}
		out = append(out, f.Payload...)
	}
	return out, nil
}
