package crowdfund

import (
	"errors"
	"fmt"

	"github.com/blockberries/crowdfund/types"
)

// Error is a recoverable ledger failure. None is fatal to the process
// and none leaves partial state behind.
//
// Two errors match under errors.Is when their codes are equal, so
// callers test kinds against the sentinels below.
type Error struct {
	Code   types.Code
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return "crowdfund: " + e.Code.String()
	}
	return fmt.Sprintf("crowdfund: %s: %s", e.Code, e.Reason)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors, one per code.
var (
	ErrInvalidInput        = &Error{Code: types.CodeInvalidInput}
	ErrInvalidAmount       = &Error{Code: types.CodeInvalidAmount}
	ErrNotFound            = &Error{Code: types.CodeNotFound}
	ErrCampaignEnded       = &Error{Code: types.CodeCampaignEnded}
	ErrNotYetEnded         = &Error{Code: types.CodeNotYetEnded}
	ErrAlreadyFinalized    = &Error{Code: types.CodeAlreadyFinalized}
	ErrNotFinalized        = &Error{Code: types.CodeNotFinalized}
	ErrCampaignFailed      = &Error{Code: types.CodeCampaignFailed}
	ErrCampaignSucceeded   = &Error{Code: types.CodeCampaignSucceeded}
	ErrUnauthorized        = &Error{Code: types.CodeUnauthorized}
	ErrAlreadyWithdrawn    = &Error{Code: types.CodeAlreadyWithdrawn}
	ErrNothingToRefund     = &Error{Code: types.CodeNothingToRefund}
	ErrOverflow            = &Error{Code: types.CodeOverflow}
	ErrInsufficientBalance = &Error{Code: types.CodeInsufficientBalance}
	ErrInternal            = &Error{Code: types.CodeInternal}
)

// NewError creates an Error with a formatted reason.
func NewError(code types.Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsError checks whether err is (or wraps) an *Error and returns it.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code carried by err: CodeOK for nil and
// CodeInternal for errors that are not ledger errors.
func CodeOf(err error) types.Code {
	if err == nil {
		return types.CodeOK
	}
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return types.CodeInternal
}

// ErrorFromCode rebuilds the error described by a wire code and reason.
// It returns nil for CodeOK.
func ErrorFromCode(code types.Code, reason string) error {
	if code.OK() {
		return nil
	}
	return &Error{Code: code, Reason: reason}
}
