package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrPriorNotFound    = fmt.Errorf("%w: prior", ErrNotFound)
	ErrAnalysisNotFound = fmt.Errorf("%w: analysis", ErrNotFound)

	// Fitting errors
	ErrInsufficientData = errors.New("insufficient data for mixture fit")
	ErrConvergence      = errors.New("EM did not converge within iteration cap")

	// Construction errors
	ErrDomain             = errors.New("parameter outside family domain")
	ErrIncompatibleFamily = errors.New("mixture families are incompatible")
	ErrInvalidWeights     = errors.New("mixture weights invalid")

	// Sampler errors
	ErrSamplerUnavailable = errors.New("posterior sampler unavailable")
	ErrSamplerResponse    = errors.New("malformed sampler response")
)

// Error constructors with context

func NewDomainError(family string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrDomain, family, reason)
}

func NewIncompatibleFamilyError(op, got, want string) error {
	return fmt.Errorf("%w: %s requires %s, got %s", ErrIncompatibleFamily, op, want, got)
}

func NewInsufficientDataError(have, need int) error {
	return fmt.Errorf("%w: %d finite draws, need at least %d", ErrInsufficientData, have, need)
}

func NewConvergenceError(components, iterations int) error {
	return fmt.Errorf("%w: K=%d after %d iterations", ErrConvergence, components, iterations)
}

// Error checking helpers

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConstructionError(err error) bool {
	return errors.Is(err, ErrDomain) ||
		errors.Is(err, ErrIncompatibleFamily) ||
		errors.Is(err, ErrInvalidWeights)
}

// IsRecoverableFitError reports whether a fit error allows the component
// selection sweep to continue with other candidate counts.
func IsRecoverableFitError(err error) bool {
	return errors.Is(err, ErrConvergence)
}
