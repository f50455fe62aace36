package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("book not found")
	ErrNoActiveLoan      = errors.New("not borrowed or no record")
	ErrNotAvailable      = errors.New("this book is currently not available")
	ErrBorrowLimit       = errors.New("you have reached the maximum borrowing limit of 5 books")
	ErrDuplicateISBN     = errors.New("a book with this ISBN already exists")
	ErrDatabase          = errors.New("database error")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrPaymentProcessing = errors.New("payment processing error")

	// ErrValidation is the class matched by errors.Is for any
	// ValidationError built with Validationf.
	ErrValidation = errors.New("validation error")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
