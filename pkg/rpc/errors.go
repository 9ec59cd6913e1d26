package rpc

import (
	"errors"
	"fmt"
)

// CallError is the caller-visible failure of a call
type CallError struct {
	Method string
	Msg    string
}

// Error implements the error interface
func (e *CallError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Method == "" {
		return fmt.Sprintf("rpc call failed: %s", e.Msg)
	}
	return fmt.Sprintf("rpc call %s failed: %s", e.Method, e.Msg)
}

// Is matches any *CallError
func (e *CallError) Is(target error) bool {
	if e == nil {
		return false
	}
	_, ok := target.(*CallError)
	return ok
}

// ErrCallFailed matches every CallError
var ErrCallFailed = &CallError{}

// Channel-level failure reasons
var (
	ErrChannelReset  = errors.New("channel reset")
	ErrChannelClosed = errors.New("channel closed")
)
