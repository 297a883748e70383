package optimizer

import "github.com/pkg/errors"

// Fatal error kinds. Each is returned (wrapped with a stack trace via
// pkg/errors, so a caller's own telemetry can log where the failure
// originated) and aborts the current Step/Minimize call; the State
// returned alongside a non-nil error is the zero value and must not be
// used.
var (
	// ErrNaNInState reports a NaN found in x before it was evaluated.
	ErrNaNInState = errors.New("optimizer: NaN in state vector")
	// ErrNaNInGradient reports a NaN found in an oracle's returned gradient.
	ErrNaNInGradient = errors.New("optimizer: NaN in gradient")
	// ErrInsufficientSteps reports steps < 1 passed to Minimize or Step.
	ErrInsufficientSteps = errors.New("optimizer: steps must be >= 1")
)

// A NaN-valued energy or gradient norm discovered after a successful
// oracle evaluation (as opposed to NaN already present beforehand) is
// deliberately NOT one of the sentinels above: it is recoverable.
// Minimize reports it via MinimizeResult.Failed, and Step turns that into
// Status = Error - a terminal state, not a returned Go error.
