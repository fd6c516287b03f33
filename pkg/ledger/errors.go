package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

// Domain errors of ledger operations. Use errors.Is to match them
var (
	ErrInvalidAmount     = errors.New("Amount must be positive")
	ErrAccountNotFound   = errors.New("Account not found")
	ErrInsufficientFunds = errors.New("Insufficient funds")
	ErrSameAccount       = errors.New("Can not transfer to the same account")
	ErrOperationFailed   = errors.New("Operation failed")
)

var domainErrors = []error{
	ErrInvalidAmount,
	ErrAccountNotFound,
	ErrInsufficientFunds,
	ErrSameAccount,
}

// OperationFailedError is returned when an operation was aborted
// for reasons other than domain validation. Nothing is committed in such a case
type OperationFailedError struct {
	Op  string
	Err error
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("%v failed: %v", e.Op, e.Err)
}

// Unwrap returns the cause
func (e *OperationFailedError) Unwrap() error {
	return e.Err
}

// Is matches ErrOperationFailed
func (e *OperationFailedError) Is(target error) bool {
	return target == ErrOperationFailed
}

// IsDomainError returns true if err is a validation failure of an operation
func IsDomainError(err error) bool {
	for _, domainErr := range domainErrors {
		if errors.Is(err, domainErr) {
			return true
		}
	}
	return false
}

func classify(op string, err error) error {
	if IsDomainError(err) {
		return err
	}
	return &OperationFailedError{Op: op, Err: err}
}
