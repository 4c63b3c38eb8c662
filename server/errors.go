package server

import (
	"errors"
	"oars-console/message"
)

// CodeError lets a handler choose the gateway code of its failure.
type CodeError struct {
	Code message.Code
	Err  error
}

func (e *CodeError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return e.Err.Error()
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

func InvalidParameter(err error) error {
	return &CodeError{Code: message.CodeInvalidParameter, Err: err}
}

func ResourceNotFound(err error) error {
	return &CodeError{Code: message.CodeResourceNotFound, Err: err}
}

var subCodes = map[message.Code]string{
	message.CodeInternalError:    "unknown-error",
	message.CodeInvalidParameter: "invalid-param",
	message.CodeMethodNotFound:   "method-not-found",
	message.CodeResourceNotFound: "resource-not-found",
}

// failure builds the envelope for a failed call: Msg is what the user
// sees, SubMsg carries the detail.
func failure(code message.Code, err error) *message.Response {
	resp := message.Failure(code, "")
	resp.SubCode = subCodes[code]
	if err != nil {
		resp.SubMsg = err.Error()
	}
	return resp
}

// failureFor maps a handler error onto an envelope.
func failureFor(err error) *message.Response {
	var ce *CodeError
	if errors.As(err, &ce) {
		return failure(ce.Code, ce.Err)
	}
	return failure(message.CodeInternalError, err)
}
