package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures handled at the request boundary.
type ErrorKind string

const (
	// KindProtocolViolation: a non-connect method arrived before the connection was usable.
	KindProtocolViolation ErrorKind = "protocol_violation"
	// KindMissingParameter: a required inbound field is absent.
	KindMissingParameter ErrorKind = "missing_parameter"
	// KindMalformedPayload: a nested serialized structure failed to parse.
	KindMalformedPayload ErrorKind = "malformed_payload"
	// KindDeliveryFailure: an I/O error while pushing to a connection.
	KindDeliveryFailure ErrorKind = "delivery_failure"
)

var (
	ErrProtocolViolation = errors.New("protocol violation")
	ErrMissingParameter  = errors.New("missing parameter")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrDeliveryFailure   = errors.New("delivery failure")
)

var kindSentinels = map[ErrorKind]error{
	KindProtocolViolation: ErrProtocolViolation,
	KindMissingParameter:  ErrMissingParameter,
	KindMalformedPayload:  ErrMalformedPayload,
	KindDeliveryFailure:   ErrDeliveryFailure,
}

// CoreError carries the kind plus the method and field it refers to.
type CoreError struct {
	Kind    ErrorKind
	Method  string
	Field   string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the same kind, so errors.Is(err, ErrMissingParameter) works.
func (e *CoreError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// ProtocolViolation rejects method before the connection has joined.
func ProtocolViolation(method string) *CoreError {
	return &CoreError{
		Kind:    KindProtocolViolation,
		Method:  method,
		Message: fmt.Sprintf("method '%s' called before joinCloud; joinCloud must be the first operation of a connection", method),
	}
}

// MissingParameter names the absent field and the method it belongs to.
func MissingParameter(method, field string) *CoreError {
	return &CoreError{
		Kind:    KindMissingParameter,
		Method:  method,
		Field:   field,
		Message: fmt.Sprintf("request element '%s' is missing in method '%s'", field, method),
	}
}

// MalformedPayload reports a field whose content could not be parsed.
func MalformedPayload(method, field string, cause error) *CoreError {
	return &CoreError{
		Kind:    KindMalformedPayload,
		Method:  method,
		Field:   field,
		Message: fmt.Sprintf("request element '%s' is malformed", field),
		Err:     cause,
	}
}

// DeliveryFailure wraps an I/O error pushing to userID.
func DeliveryFailure(userID string, cause error) *CoreError {
	return &CoreError{
		Kind:    KindDeliveryFailure,
		Message: fmt.Sprintf("deliver to %s", userID),
		Err:     cause,
	}
}

// AsCoreError extracts a *CoreError from err's chain.
func AsCoreError(err error) (*CoreError, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
