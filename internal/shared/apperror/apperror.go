package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies which invariant an error reports.
type Kind string

const (
	KindInvalidTimeRange       Kind = "INVALID_TIME_RANGE"
	KindReferenceNotFound      Kind = "REFERENCE_NOT_FOUND"
	KindVoucherLocked          Kind = "VOUCHER_LOCKED"
	KindRefundExceedsTotal     Kind = "REFUND_EXCEEDS_TOTAL"
	KindInvalidState           Kind = "INVALID_STATE"
	KindInsufficientSelection  Kind = "INSUFFICIENT_SELECTION"
	KindConcurrentModification Kind = "CONCURRENT_MODIFICATION"
)

// Error is a domain error carrying its kind and the HTTP status it maps to.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrInvalidState)
// works for every message built from that sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidTimeRange       = &Error{Kind: KindInvalidTimeRange, Status: http.StatusBadRequest, Message: "invalid time range"}
	ErrReferenceNotFound      = &Error{Kind: KindReferenceNotFound, Status: http.StatusNotFound, Message: "reference not found"}
	ErrVoucherLocked          = &Error{Kind: KindVoucherLocked, Status: http.StatusConflict, Message: "voucher is locked"}
	ErrRefundExceedsTotal     = &Error{Kind: KindRefundExceedsTotal, Status: http.StatusUnprocessableEntity, Message: "refund exceeds invoice total"}
	ErrInvalidState           = &Error{Kind: KindInvalidState, Status: http.StatusConflict, Message: "invalid state"}
	ErrInsufficientSelection  = &Error{Kind: KindInsufficientSelection, Status: http.StatusBadRequest, Message: "insufficient selection"}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification, Status: http.StatusConflict, Message: "record was modified concurrently"}
)

// Newf builds an error of the sentinel's kind with a specific message.
func Newf(sentinel *Error, format string, args ...interface{}) error {
	return &Error{
		Kind:    sentinel.Kind,
		Status:  sentinel.Status,
		Message: fmt.Sprintf(format, args...),
	}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf maps an error to an HTTP status, 500 for anything unclassified.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// KindOf returns the error kind or "" when err is not a domain error.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}
