package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger matches exactly one of these with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrDataAccess      = errors.New("data access failed")
	ErrValidation      = errors.New("invalid input")
	ErrConflict        = errors.New("concurrent update")
	ErrUnavailable     = errors.New("no copies available")
	ErrAlreadyBorrowed = errors.New("document already borrowed by this client")
)

var kinds = []error{ErrNotFound, ErrValidation, ErrConflict, ErrUnavailable, ErrAlreadyBorrowed, ErrDataAccess}

// Kind returns the error kind of err, or nil when err is nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrDataAccess
}

// classify tags store failures that carry no kind as ErrDataAccess.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDataAccess, err)
}

func loanNotFound(email string, documentID uint) error {
	return fmt.Errorf("%w: no open loan of document %d for %s", ErrNotFound, documentID, email)
}

func clientNotFound(email string) error {
	return fmt.Errorf("%w: client %s", ErrNotFound, email)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
