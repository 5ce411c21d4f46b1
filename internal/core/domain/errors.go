package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed means every known messages endpoint path was tried
	// and failed. Fatal to the current request, not to the process.
	ErrFetchFailed = errors.New("messages fetch failed")
	// ErrModelLoad means the embedding backend could not be warmed up.
	ErrModelLoad = errors.New("model load failed")

	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
