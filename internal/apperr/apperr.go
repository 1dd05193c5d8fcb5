// Package apperr defines the error kinds the bot distinguishes when deciding
// what to tell the user and whether the process may keep running.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	// KindConfiguration is fatal at startup.
	KindConfiguration Kind = "CONFIGURATION"
	// KindPaymentProvider covers network failures, timeouts and non-ok envelopes.
	KindPaymentProvider Kind = "PAYMENT_PROVIDER"
	// KindInvoiceNotFound means the provider has no such invoice.
	KindInvoiceNotFound Kind = "INVOICE_NOT_FOUND"
	// KindValidation marks malformed user input; the prompt stays open.
	KindValidation Kind = "VALIDATION"
	// KindNotFound marks an unknown file code.
	KindNotFound Kind = "NOT_FOUND"
)

// Error is a kinded error carrying the failed operation and its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Code is picked up by the handler summary logs.
func (e *Error) Code() string { return string(e.Kind) }

// Is matches another *Error by kind, so errors.Is(err, apperr.Validation) works
// with the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	Configuration   = &Error{Kind: KindConfiguration}
	PaymentProvider = &Error{Kind: KindPaymentProvider}
	InvoiceNotFound = &Error{Kind: KindInvoiceNotFound}
	Validation      = &Error{Kind: KindValidation}
	NotFound        = &Error{Kind: KindNotFound}
)

// E builds an Error. A nil cause is allowed.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an Error whose cause is formatted like fmt.Errorf.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
