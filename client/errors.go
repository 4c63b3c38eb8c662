package client

import (
	"errors"
	"fmt"
	"oars-console/message"
)

// Kind classifies a failed call.
type Kind string

const (
	// KindBusiness: the gateway answered with a non-success code.
	KindBusiness Kind = "business"
	// KindTransport: the gateway could not be reached or its reply could
	// not be read.
	KindTransport Kind = "transport"
	// KindInvalid: the call was rejected before anything was sent.
	KindInvalid Kind = "invalid"
	// KindConfig: the client could not be built.
	KindConfig Kind = "config"
)

// UnreachableMessage is what the user is told on every transport failure.
const UnreachableMessage = "failed to reach server"

var (
	ErrBusiness  = errors.New("gateway rejected the call")
	ErrTransport = errors.New("gateway unreachable")
	ErrInvalid   = errors.New("invalid call")
	ErrConfig    = errors.New("invalid client configuration")
)

// Error is returned for every failed call.
type Error struct {
	Kind    Kind
	Method  string
	Code    message.Code // business errors only
	Message string       // what the user was notified with
	Err     error        // underlying transport error, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindBusiness:
		return fmt.Sprintf("%s: code %d: %s", e.Method, int(e.Code), e.Message)
	case KindTransport:
		return fmt.Sprintf("%s: %s: %v", e.Method, e.Message, e.Err)
	}
	if e.Method != "" {
		return fmt.Sprintf("%s: %s", e.Method, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrBusiness) and friends match on the kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrBusiness:
		return e.Kind == KindBusiness
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrInvalid:
		return e.Kind == KindInvalid
	case ErrConfig:
		return e.Kind == KindConfig
	}
	return false
}

// CodeOf returns the gateway code carried by err, or 0.
func CodeOf(err error) message.Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
