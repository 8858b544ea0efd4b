package dbal

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error unwraps to exactly one of the first four.
var (
	// ErrConfiguration is returned for a bad or incomplete configuration record.
	ErrConfiguration = errors.New("dbal: invalid configuration")

	// ErrConnection is returned when connecting or disconnecting fails.
	ErrConnection = errors.New("dbal: connection failed")

	// ErrPrepare is returned when the backend rejects a statement.
	ErrPrepare = errors.New("dbal: prepare failed")

	// ErrExecution is returned when binding or running a statement fails.
	ErrExecution = errors.New("dbal: execution failed")
)

// Conditions reported alongside the kinds above.
var (
	// ErrNotConnected is returned when an operation needs an open connection.
	ErrNotConnected = errors.New("dbal: not connected")

	// ErrNotExecuted is returned when results are requested before Execute.
	ErrNotExecuted = errors.New("dbal: statement not executed")

	// ErrStatementClosed is returned when a closed statement is used.
	ErrStatementClosed = errors.New("dbal: statement closed")

	// ErrInvalidFetchMode is returned when a fetch mode is not recognised.
	ErrInvalidFetchMode = errors.New("dbal: invalid fetch mode")

	// ErrInvalidColumn is returned when a column index is out of range.
	ErrInvalidColumn = errors.New("dbal: invalid column")

	// ErrBind is returned when parameters do not match the statement.
	ErrBind = errors.New("dbal: parameter binding failed")

	// ErrUnknownDriver is returned by Open for an unregistered driver name.
	ErrUnknownDriver = errors.New("dbal: unknown driver")

	// ErrTransaction is reported when a transaction cannot be started or
	// finished (none active, already active, or unsupported).
	ErrTransaction = errors.New("dbal: transaction state change refused")
)

// CodeUnknown is the error number recorded when the backend supplies none.
const CodeUnknown = -1

// ErrorInfo describes the last backend error of a driver.
type ErrorInfo struct {
	SQLState string `json:"sqlstate"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
}

// Error is a backend failure carrying the native error code and message.
//
// Use errors.Is with the kind sentinels (ErrPrepare, ErrExecution, ...) and
// errors.As with the native driver error type; both are reachable.
type Error struct {
	Op       string
	Kind     error
	Code     int
	SQLState string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 && e.Code != CodeUnknown {
		return fmt.Sprintf("%s: %s [%d]: %s", e.Kind, e.Op, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, msg)
}

// Unwrap exposes both the kind sentinel and the underlying error.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Info returns the error as an ErrorInfo record.
func (e *Error) Info() ErrorInfo {
	return ErrorInfo{SQLState: e.SQLState, Code: e.Code, Message: e.Message}
}

// CodeOf returns the native error code carried by err, or 0 if err is not
// (or does not wrap) an *Error.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
