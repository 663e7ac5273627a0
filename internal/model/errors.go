package model

import "fmt"

// ErrorKind is the closed error taxonomy of section 7: kinds only, no
// provider-specific exception types.
type ErrorKind string

const (
	ErrInvalidGraph  ErrorKind = "InvalidGraph"
	ErrInvalidConfig ErrorKind = "InvalidConfig"
	ErrMissingInput  ErrorKind = "MissingInput"
	ErrExternal      ErrorKind = "External"
	ErrTimeout       ErrorKind = "Timeout"
	ErrCancelled     ErrorKind = "Cancelled"
	ErrInternal      ErrorKind = "Internal"
)

// Error is the tagged error every handler and pipeline-library function
// returns: {kind, message, nodeID, cause}.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	NodeID  NodeID    `json:"node_id,omitempty"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Kind, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/errors.As reach the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs a tagged Error without a node context. Use WithNode
// to attach one once it becomes known (e.g. inside the engine after a
// handler returns a bare library error).
func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WithNode returns a copy of e annotated with nodeID, leaving e untouched.
func (e *Error) WithNode(nodeID NodeID) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.NodeID = nodeID
	return &cp
}

// KindOf extracts the ErrorKind from err if it is (or wraps) a *Error,
// defaulting to Internal for anything else — an un-tagged error reaching
// the engine boundary is itself a bug-class condition.
func KindOf(err error) ErrorKind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return ErrInternal
}

// asError is a tiny local errors.As to avoid importing errors just for
// this one call site pattern used by KindOf and IsKind.
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

// IsKind reports whether err is (or wraps) a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return asError(err, &e) && e.Kind == kind
}
