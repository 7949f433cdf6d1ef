package services

import (
	"errors"
	"fmt"
	"strings"

	"whizbee-badges/models"

	"github.com/google/uuid"
)

var (
	// ErrInvalidIdentifier is returned for malformed player or reward ids,
	// before any store access.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidDifficulty is an ErrInvalidIdentifier for difficulty names.
	ErrInvalidDifficulty = fmt.Errorf("%w: difficulty must be one of easy, average, difficult", ErrInvalidIdentifier)
	ErrRewardNotFound    = errors.New("reward not found")
	ErrAlreadyClaimed    = errors.New("badge already claimed")
	ErrNotEligible       = errors.New("not eligible to claim badge")
)

// StorageError wraps a failure of the underlying database. Creating and
// claiming rewards are safe to retry after one.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err came from the database layer.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func validateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidIdentifier, kind)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: malformed %s %q", ErrInvalidIdentifier, kind, id)
	}
	return nil
}

func validateDifficulty(d models.Difficulty) error {
	if !d.Valid() {
		return ErrInvalidDifficulty
	}
	return nil
}
