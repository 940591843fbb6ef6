// Package programerr defines the error values operations surface to callers.
// Every failure carries a stable numeric code so clients can match on it
// without parsing messages.
package programerr

import (
	"errors"
	"fmt"
)

// Code identifies a failure class.
type Code uint32

// Error is a terminal operation failure.
type Error struct {
	Code    Code   `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// New constructs an Error.
func New(code Code, name, message string) *Error {
	return &Error{Code: code, Name: name, Message: message}
}

// From returns the first *Error in err's chain.
func From(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// Runtime failure codes.
const (
	CodeAuthorization Code = 1 + iota
	CodePaymentTransferFailed
	CodeInsufficientFunds
	CodeAccountAlreadyInUse
	CodeAccountNotFound
	CodeInvalidArgument
	CodeMissingSigner
)

var (
	ErrAuthorization         = New(CodeAuthorization, "AuthorizationFailure", "signer proof does not match the required authority")
	ErrPaymentTransferFailed = New(CodePaymentTransferFailed, "PaymentTransferFailed", "payment transfer failed")
	ErrInsufficientFunds     = New(CodeInsufficientFunds, "InsufficientFunds", "insufficient lamports for transfer")
	ErrAccountAlreadyInUse   = New(CodeAccountAlreadyInUse, "AccountAlreadyInUse", "account already in use")
	ErrAccountNotFound       = New(CodeAccountNotFound, "AccountNotFound", "account not found")
	ErrInvalidArgument       = New(CodeInvalidArgument, "InvalidArgument", "invalid argument")
	ErrMissingRequiredSigner = New(CodeMissingSigner, "MissingRequiredSignature", "missing required signer")
)
