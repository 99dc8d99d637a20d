package sentinel

import "fmt"

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an immutable error type backed by a string constant.
//
// errors.Is compatibility: since Error is a comparable type, the default
// == comparison used by errors.Is works correctly through wrapped error chains.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// With returns an error that matches e under errors.Is and carries a
// formatted detail message. Arguments are rendered with fmt verbs only; an
// error passed as an argument is flattened to its text and is not part of
// the returned chain.
func (e Error) With(format string, args ...any) error {
	return &detailed{kind: e, detail: fmt.Sprintf(format, args...)}
}

type detailed struct {
	kind   Error
	detail string
}

func (d *detailed) Error() string {
	if d.detail == "" {
		return string(d.kind)
	}
	return string(d.kind) + ": " + d.detail
}

func (d *detailed) Unwrap() error { return d.kind }
