package chain

import "errors"

// Sentinel errors so callers can test error kind with errors.Is, the way
// database/sql's ErrNoRows is tested, rather than type-switching.
var (
	ErrTransport         = errors.New("transport error")
	ErrHandshakeRefused  = errors.New("handshake refused")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrNotFound          = errors.New("not found")
	ErrIntegrityFailure  = errors.New("integrity failure")
	ErrMalformed         = errors.New("malformed")
	ErrTimeout           = errors.New("timeout")
)

// TransportError wraps TCP connect/read/write failures and EOF mid-frame.
// Retryable by the caller on a new connection; fatal within a single
// reconstruction.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return "transport: " + e.Op + ": " + e.Err.Error()
	}
	return "transport: " + e.Op
}

func (e *TransportError) Unwrap() error { return ErrTransport }

// HandshakeRefusedReason enumerates the peer's refusal reasons.
type HandshakeRefusedReason string

const (
	ReasonVersionMismatch     HandshakeRefusedReason = "VersionMismatch"
	ReasonHandshakeDecodeError HandshakeRefusedReason = "HandshakeDecodeError"
	ReasonRefused             HandshakeRefusedReason = "Refused"
)

// HandshakeRefusedError reports a peer MsgRefuse([2, refuseReason]).
// Fatal for that peer; the connection driver tries the next endpoint.
type HandshakeRefusedError struct {
	Reason HandshakeRefusedReason
}

func (e *HandshakeRefusedError) Error() string {
	return "handshake refused: " + string(e.Reason)
}

func (e *HandshakeRefusedError) Unwrap() error { return ErrHandshakeRefused }

// ProtocolViolationError reports an unexpected message, malformed CBOR, or
// an inbound-queue overflow. Fatal; the connection is closed.
type ProtocolViolationError struct {
	Protocol string
	Detail   string
}

func (e *ProtocolViolationError) Error() string {
	return "protocol violation on " + e.Protocol + ": " + e.Detail
}

func (e *ProtocolViolationError) Unwrap() error { return ErrProtocolViolation }

// NotFoundError reports MsgNoBlocks, MsgIntersectNotFound, or a missing
// tx/output/asset. Distinct from a generic error so front ends can suggest
// corrective action.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return "not found: " + e.What }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IntegrityFailureError reports a failed hash check. Fatal for the
// reconstruction; partial bytes must be discarded by the caller.
type IntegrityFailureError struct {
	Which    string
	Expected string
	Actual   string
}

func (e *IntegrityFailureError) Error() string {
	return "integrity failure (" + e.Which + "): expected " + e.Expected + ", got " + e.Actual
}

func (e *IntegrityFailureError) Unwrap() error { return ErrIntegrityFailure }

// MalformedError reports a hex decode failure, odd-length segment,
// duplicate page index, or similar. Fatal for the reconstruction.
type MalformedError struct {
	Where string
}

func (e *MalformedError) Error() string { return "malformed at " + e.Where }

func (e *MalformedError) Unwrap() error { return ErrMalformed }

// TimeoutError reports any of the timeouts named in spec.md §5. Callers
// may retry on a new connection.
type TimeoutError struct {
	Op       string
	Deadline string
}

func (e *TimeoutError) Error() string {
	return "timeout in " + e.Op + " (deadline " + e.Deadline + ")"
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }
