package n2n

import (
	"bytes"
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// protocolBuffer accumulates raw MUX-reassembled bytes for one protocol
// stream and peels off complete CBOR messages as enough bytes arrive.
// CBOR is self-delimiting, so message boundaries need no extra framing;
// this mirrors how a real Ouroboros mini-protocol driver knows where one
// message ends and the next begins.
type protocolBuffer struct {
	buf bytes.Buffer
}

// Feed appends newBytes and returns every complete top-level CBOR message
// that can now be peeled off, in order.
func (p *protocolBuffer) Feed(newBytes []byte) ([][]byte, error) {
	p.buf.Write(newBytes)
	var out [][]byte
	for {
		msg, consumed, ok, err := tryDecodeOne(p.buf.Bytes())
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, msg)
		p.buf.Next(consumed)
	}
}

// tryDecodeOne attempts to decode exactly one CBOR data item from the
// front of buf. ok is false when buf holds an incomplete item (wait for
// more frames); err is non-nil only for a genuinely malformed item.
func tryDecodeOne(buf []byte) (raw []byte, consumed int, ok bool, err error) {
	if len(buf) == 0 {
		return nil, 0, false, nil
	}
	dec := cbor.NewDecoder(bytes.NewReader(buf))
	var msg cbor.RawMessage
	decErr := dec.Decode(&msg)
	if decErr != nil {
		if errors.Is(decErr, io.EOF) || errors.Is(decErr, io.ErrUnexpectedEOF) {
			return nil, 0, false, nil
		}
		return nil, 0, false, decErr
	}
	return []byte(msg), dec.NumBytesRead(), true, nil
}
