package clmm

import (
	"errors"
	"fmt"
)

// Code is the stable discriminant carried by every settlement error.
// Callers branch on the code, not on message text.
type Code string

const (
	CodeMintsMustDiffer          Code = "MintsMustDiffer"
	CodeMintsNotInCanonicalOrder Code = "MintsNotInCanonicalOrder"
	CodeInvalidTickSpacing       Code = "InvalidTickSpacing"
	CodeInvalidInitialPrice      Code = "InvalidInitialPrice"
	CodePriceOutOfBounds         Code = "PriceOutOfBounds"
	CodeInvalidTickRange         Code = "InvalidTickRange"
	CodeZeroLiquidityDelta       Code = "ZeroLiquidityDelta"
	CodeInvalidInput             Code = "InvalidInput"
	CodeInsufficientLiquidity    Code = "InsufficientLiquidity"
	CodeNotPositionOwner         Code = "NotPositionOwner"
	CodePositionNotFound         Code = "PositionNotFound"
	CodePoolNotFound             Code = "PoolNotFound"
	CodePoolAlreadyExists        Code = "PoolAlreadyExists"
)

// Error pairs a code with context. It unwraps to nothing; match with
// errors.As or CodeOf.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Errorf builds a coded error with a formatted message.
func Errorf(code Code, format string, args ...interface{}) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the settlement code from err, or "" if err carries none.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
