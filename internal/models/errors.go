package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies flow errors so handlers can map them to responses
// without inspecting messages.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNetwork          ErrorKind = "network"
	KindInvalidResponse  ErrorKind = "invalid_response"
	KindServer           ErrorKind = "server"
	KindSignatureInvalid ErrorKind = "signature_invalid"
)

type FlowError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FlowError) Unwrap() error { return e.Err }

func NewFlowError(kind ErrorKind, msg string, err error) *FlowError {
	return &FlowError{Kind: kind, Msg: msg, Err: err}
}

func ValidationError(msg string) *FlowError {
	return &FlowError{Kind: KindValidation, Msg: msg}
}

// ErrKind returns the classification of err, or empty when err is not a
// FlowError.
func ErrKind(err error) ErrorKind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
