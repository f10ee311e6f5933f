package portfolio

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount indicates a divestment amount that is zero, negative,
	// or not a finite number.
	ErrInvalidAmount = errors.New("divestment amount must be a positive finite number")

	// ErrAmountExceedsExposure indicates a divestment amount greater than the
	// current Tier D exposure. Returned wrapped in an ExceedsExposureError
	// carrying the ceiling.
	ErrAmountExceedsExposure = errors.New("divestment amount exceeds tier D exposure")

	// ErrVersionConflict indicates a version-checked write lost a race against
	// a concurrent writer. Callers retry against the fresh snapshot.
	ErrVersionConflict = errors.New("snapshot version conflict")

	// ErrPersistenceFailure indicates a document store read or write failed.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrSnapshotNotFound indicates the portfolio document has not been seeded.
	ErrSnapshotNotFound = errors.New("portfolio snapshot not found")
)

// ExceedsExposureError reports a divestment amount above the current Tier D
// exposure. Ceiling is the maximum divestable amount, for user feedback.
type ExceedsExposureError struct {
	Amount  float64
	Ceiling float64
}

func (e *ExceedsExposureError) Error() string {
	return fmt.Sprintf("divestment amount %.2f exceeds tier D exposure %.2f", e.Amount, e.Ceiling)
}

// Is makes errors.Is(err, ErrAmountExceedsExposure) match.
func (e *ExceedsExposureError) Is(target error) bool {
	return target == ErrAmountExceedsExposure
}
