package domain

// ErrorKind classifies command failures for callers that need to react
// differently to "you asked for something that does not exist" versus
// "the device did not cooperate".
type ErrorKind string

const (
	// ErrNotFound: unknown device id, or a zone master/slave that is not
	// part of the addressed zone.
	ErrNotFound ErrorKind = "NOT_FOUND"
	// ErrValidation: request rejected before any device I/O.
	ErrValidation ErrorKind = "VALIDATION"
	// ErrTransport: network-level failure talking to a device or API.
	ErrTransport ErrorKind = "TRANSPORT"
	// ErrProtocolRejected: device reachable but it rejected or never
	// confirmed the command.
	ErrProtocolRejected ErrorKind = "PROTOCOL_REJECTED"
	// ErrPartial: the primary operation succeeded but a compensating
	// action did not.
	ErrPartial ErrorKind = "PARTIAL"
)

// CommandError is the typed failure result every manager operation
// returns instead of an unhandled fault. Message is human-readable and
// surfaced verbatim to the UI.
type CommandError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *CommandError) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + ": " + e.Message
}
