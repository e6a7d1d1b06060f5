package types

import "fmt"

// Code is the result code of a ledger operation. 0 = success.
// Codes are part of the wire format and must never be renumbered.
type Code uint32

const (
	CodeOK                  Code = 0
	CodeInvalidInput        Code = 1
	CodeInvalidAmount       Code = 2
	CodeNotFound            Code = 3
	CodeCampaignEnded       Code = 4
	CodeNotYetEnded         Code = 5
	CodeAlreadyFinalized    Code = 6
	CodeNotFinalized        Code = 7
	CodeCampaignFailed      Code = 8
	CodeCampaignSucceeded   Code = 9
	CodeUnauthorized        Code = 10
	CodeAlreadyWithdrawn    Code = 11
	CodeNothingToRefund     Code = 12
	CodeOverflow            Code = 13
	CodeInsufficientBalance Code = 14
	// CodeInternal marks failures outside the ledger's own rules,
	// e.g. a transport error surfaced to the caller.
	CodeInternal Code = 15
)

var codeNames = map[Code]string{
	CodeOK:                  "OK",
	CodeInvalidInput:        "InvalidInput",
	CodeInvalidAmount:       "InvalidAmount",
	CodeNotFound:            "NotFound",
	CodeCampaignEnded:       "CampaignEnded",
	CodeNotYetEnded:         "NotYetEnded",
	CodeAlreadyFinalized:    "AlreadyFinalized",
	CodeNotFinalized:        "NotFinalized",
	CodeCampaignFailed:      "CampaignFailed",
	CodeCampaignSucceeded:   "CampaignSucceeded",
	CodeUnauthorized:        "Unauthorized",
	CodeAlreadyWithdrawn:    "AlreadyWithdrawn",
	CodeNothingToRefund:     "NothingToRefund",
	CodeOverflow:            "Overflow",
	CodeInsufficientBalance: "InsufficientBalance",
	CodeInternal:            "Internal",
}

// OK returns true for CodeOK.
func (c Code) OK() bool { return c == CodeOK }

// String returns a human-readable representation.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint32(c))
}
