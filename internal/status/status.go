// Package status enumerates the recoverable failure kinds of the order
// engine. Every expected failure crosses the service boundary as a *Error so
// handlers can render it as a message list instead of an HTTP-level crash.
package status

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindValidation            Kind = "validation"
	KindSalesWindowClosed     Kind = "sales_window_closed"
	KindInsufficientInventory Kind = "insufficient_inventory"
	KindForbidden             Kind = "forbidden"
	KindUnauthenticated       Kind = "unauthenticated"
	KindInvalidStatus         Kind = "invalid_status"
	KindAmountMismatch        Kind = "amount_mismatch"
	KindPaymentDeclined       Kind = "payment_declined"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Fixed-message outcomes. The wording matches what API clients assert on.
var (
	ErrTicketBatchNotFound = &Error{KindNotFound, "Ticket batch not found"}
	ErrOrderNotFound       = &Error{KindNotFound, "Order not found"}
	ErrEventNotFound       = &Error{KindNotFound, "Event not found"}
	ErrSalesWindowClosed   = &Error{KindSalesWindowClosed, "Sales window closed"}
	ErrForbidden           = &Error{KindForbidden, "Forbidden"}
	ErrUnauthenticated     = &Error{KindUnauthenticated, "You must be logged in to perform this action"}
	ErrInvalidStatus       = &Error{KindInvalidStatus, "Invalid status"}
	ErrAmountMismatch      = &Error{KindAmountMismatch, "Amount mismatch"}
	ErrPaymentDeclined     = &Error{KindPaymentDeclined, "Payment declined"}
)

func Validation(message string) *Error {
	return &Error{KindValidation, message}
}

// InsufficientInventory reports a reservation exceeding the batch's current
// availability, including both counts.
func InsufficientInventory(requested, available int) *Error {
	return &Error{
		KindInsufficientInventory,
		fmt.Sprintf("Quantity %d greater than available tickets (%d available)", requested, available),
	}
}

// KindOf extracts the failure kind from err, or "" when err is not an
// expected outcome (i.e. an infrastructure or programming error).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
