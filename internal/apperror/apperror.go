// Package apperror defines the ledger's error taxonomy. Handlers map
// these kinds onto HTTP status codes; everything else in the system
// returns them as plain errors.
package apperror

import "errors"

type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindInsufficientFunds
	KindPayment
	KindNotFound
	KindConflict
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func Payment(message string) *Error {
	return &Error{Kind: KindPayment, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func InsufficientFunds() *Error {
	return &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
}

// KindOf reports the taxonomy kind of err, or KindUnknown for
// infrastructure errors that should surface as server errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
