package core

import "strconv"

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrOperationForbidden operation forbidden
	ErrOperationForbidden ErrorCode = 100001

	// ErrReserveNotFound no reserve
	ErrReserveNotFound ErrorCode = 100100
	// ErrInvalidAmount invalid amount
	ErrInvalidAmount ErrorCode = 100101
	// ErrDepositNotFound no deposit position
	ErrDepositNotFound ErrorCode = 100102
	// ErrBorrowNotFound no borrow position
	ErrBorrowNotFound ErrorCode = 100103
	// ErrInsufficientLiquidity pool liquidity below requested amount
	ErrInsufficientLiquidity ErrorCode = 100104
	// ErrReserveNotActive reserve frozen or paused
	ErrReserveNotActive ErrorCode = 100105
	// ErrObligationNotFound no obligation for the user
	ErrObligationNotFound ErrorCode = 100106

	// ErrArithmeticOverflow fixed point math overflow, fatal to the current call
	ErrArithmeticOverflow ErrorCode = 100200
	// ErrDivisionByZero division by zero, fatal to the current call
	ErrDivisionByZero ErrorCode = 100201

	// ErrStaleOracle price observation older than the allowed age
	ErrStaleOracle ErrorCode = 100300
	// ErrLowConfidence confidence interval too wide relative to price
	ErrLowConfidence ErrorCode = 100301
	// ErrPriceOutOfBounds price outside the configured sane range
	ErrPriceOutOfBounds ErrorCode = 100302

	// ErrHealthFactorTooLow action would push health factor below 1
	ErrHealthFactorTooLow ErrorCode = 100400
	// ErrCapacityExceeded deposit or borrow list is full
	ErrCapacityExceeded ErrorCode = 100401
	// ErrHealthyPosition liquidation refused, health factor not below 1
	ErrHealthyPosition ErrorCode = 100402
	// ErrSeizeNotAllowed seize exceeds close factor limit
	ErrSeizeNotAllowed ErrorCode = 100403
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}
