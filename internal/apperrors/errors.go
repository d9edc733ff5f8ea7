package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds
// Every error returned by services wraps exactly one of them, check with errors.Is
var (
	// Referenced entity is absent
	ErrNotFound = errors.New("not found")

	// Caller is not the party required for the operation
	ErrUnauthorized = errors.New("unauthorized")

	// Operation is not legal in the entity's current lifecycle state
	ErrInvalidState = errors.New("invalid state")

	// Business rule rejected the request
	ErrPolicyViolation = errors.New("policy violation")

	// Storage failed (unreachable, write conflict, lock wait aborted)
	// The only kind worth retrying unmodified
	ErrTransient = errors.New("transient storage error")
)

var (
	ErrListingNotFound     = fmt.Errorf("listing %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrSellerNotFound      = fmt.Errorf("seller %w", ErrNotFound)

	ErrNotAuction             = fmt.Errorf("listing is not an auction: %w", ErrInvalidState)
	ErrAuctionEnded           = fmt.Errorf("auction ended: %w", ErrInvalidState)
	ErrWrongTransactionStatus = fmt.Errorf("transaction status does not allow this transition: %w", ErrInvalidState)

	ErrNotSeller      = fmt.Errorf("caller is not the seller: %w", ErrUnauthorized)
	ErrNotBuyer       = fmt.Errorf("caller is not the buyer: %w", ErrUnauthorized)
	ErrNotParticipant = fmt.Errorf("caller is not a transaction participant: %w", ErrUnauthorized)

	ErrInvalidAmount           = fmt.Errorf("amount must be positive whole cents below 10^12: %w", ErrPolicyViolation)
	ErrBidTooLow               = fmt.Errorf("bid amount too low: %w", ErrPolicyViolation)
	ErrOwnListing              = fmt.Errorf("cannot bid on own item: %w", ErrPolicyViolation)
	ErrSelfPurchase            = fmt.Errorf("cannot buy own item: %w", ErrPolicyViolation)
	ErrListingNotPurchasable   = fmt.Errorf("listing is not purchasable: %w", ErrPolicyViolation)
	ErrInsufficientFunds       = fmt.Errorf("insufficient funds: %w", ErrPolicyViolation)
	ErrWithdrawalFieldsMissing = fmt.Errorf("withdrawal method and details are required: %w", ErrPolicyViolation)
	ErrInvalidListing          = fmt.Errorf("invalid listing: %w", ErrPolicyViolation)
)

// ThresholdError is a policy rejection carrying the computed value that caused it,
// so the caller can correct the request (minimum bid, available balance)
type ThresholdError struct {
	Err       error
	Threshold decimal.Decimal
}

func NewThresholdError(err error, threshold decimal.Decimal) *ThresholdError {
	return &ThresholdError{Err: err, Threshold: threshold}
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%v (threshold: %s)", e.Err, e.Threshold.StringFixed(2))
}

func (e *ThresholdError) Unwrap() error {
	return e.Err
}

// Threshold returns the value carried by a ThresholdError somewhere in the chain
func Threshold(err error) (decimal.Decimal, bool) {
	var te *ThresholdError
	if errors.As(err, &te) {
		return te.Threshold, true
	}
	return decimal.Zero, false
}

// Transient wraps storage failure so callers may distinguish it from business errors
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
