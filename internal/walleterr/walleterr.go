// Package walleterr implements the wallet's flat error taxonomy: every
// fallible core operation returns a *walleterr.Error (or nil), wrapping
// the underlying cause so errors.Unwrap keeps working across package
// boundaries.
package walleterr

import "fmt"

// Kind classifies an Error.
type Kind string

const (
	InvalidInput        Kind = "invalid_input"
	InsufficientBalance Kind = "insufficient_balance"
	NetworkError        Kind = "network_error"
	RPCError            Kind = "rpc_error"
	DoubleSpend         Kind = "double_spend"
	ParseError          Kind = "parse_error"
	ChecksumMismatch    Kind = "checksum_mismatch"
	ScalarInvalid       Kind = "scalar_invalid"
	PointInvalid        Kind = "point_invalid"
	PolicyViolation     Kind = "policy_violation"
	Cancelled           Kind = "cancelled"
	Internal            Kind = "internal"
)

// Error is the core's uniform error type.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// RPCCode/RPCMessage are populated for Kind == RPCError when the node
	// returned a structured error body.
	RPCCode    int
	RPCMessage string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a bare Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates a bare Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// RPC creates an Error representing a node-returned error body.
func RPC(code int, message string) *Error {
	return &Error{
		Kind:       RPCError,
		Message:    message,
		RPCCode:    code,
		RPCMessage: message,
	}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
