package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a transport failure.
type Kind string

const (
	KindNetwork Kind = "network" // no response: dial, timeout, cancelled
	KindStatus  Kind = "status"  // response outside 2xx
	KindDecode  Kind = "decode"  // body could not be encoded or decoded
)

// Error is returned for every failed request.
type Error struct {
	Kind   Kind
	Method string
	Path   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// IsKind reports whether err is a transport error of kind k.
func IsKind(err error, k Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == k
}
