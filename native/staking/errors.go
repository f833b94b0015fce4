package staking

import (
	"errors"
	"fmt"
)

// Code is the stable numeric failure code surfaced to callers.
type Code uint16

const (
	CodePermissionDenied           Code = 1
	CodeWrongArguments             Code = 2
	CodeNotRequiredStake           Code = 3
	CodeBadTiming                  Code = 4
	CodeInvalidContext             Code = 5
	CodeNegativeReward             Code = 6
	CodeNegativeWithdrawableReward Code = 7
	CodeNegativeAmount             Code = 8
	CodeInsufficientStake          Code = 9
	CodeInvalidState               Code = 10
)

var codeNames = map[Code]string{
	CodePermissionDenied:           "PermissionDenied",
	CodeWrongArguments:             "WrongArguments",
	CodeNotRequiredStake:           "NotRequiredStake",
	CodeBadTiming:                  "BadTiming",
	CodeInvalidContext:             "InvalidContext",
	CodeNegativeReward:             "NegativeReward",
	CodeNegativeWithdrawableReward: "NegativeWithdrawableReward",
	CodeNegativeAmount:             "NegativeAmount",
	CodeInsufficientStake:          "InsufficientStake",
	CodeInvalidState:               "InvalidState",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}

// Error is a coded staking failure. Two errors match under errors.Is when
// their codes are equal, so callers compare against the exported sentinels.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return "staking: " + e.Message
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrPermissionDenied           = &Error{Code: CodePermissionDenied, Message: "permission denied"}
	ErrWrongArguments             = &Error{Code: CodeWrongArguments, Message: "wrong arguments"}
	ErrNotRequiredStake           = &Error{Code: CodeNotRequiredStake, Message: "not required stake"}
	ErrBadTiming                  = &Error{Code: CodeBadTiming, Message: "bad timing"}
	ErrInvalidContext             = &Error{Code: CodeInvalidContext, Message: "invalid caller context"}
	ErrNegativeReward             = &Error{Code: CodeNegativeReward, Message: "reward must be positive"}
	ErrNegativeWithdrawableReward = &Error{Code: CodeNegativeWithdrawableReward, Message: "withdrawable reward out of range"}
	ErrNegativeAmount             = &Error{Code: CodeNegativeAmount, Message: "amount must be positive"}
	ErrInsufficientStake          = &Error{Code: CodeInsufficientStake, Message: "insufficient stake"}
	ErrInvalidState               = &Error{Code: CodeInvalidState, Message: "invalid state"}
)

var (
	errNilState   = errors.New("staking engine: state not configured")
	errNilGateway = errors.New("staking engine: transfer gateway not configured")
)

// errorf derives a coded error with a specific message from a sentinel.
func errorf(base *Error, format string, args ...any) error {
	return &Error{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the failure code carried by err.
func CodeOf(err error) (Code, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code, true
	}
	return 0, false
}
