package pool

import (
	"errors"
	"fmt"
	"time"
)

// namespace prefixes every error and log message originating in this package.
const namespace = "jobpool"

var (
	// ErrInvalidConfig wraps every option validation failure.
	ErrInvalidConfig = errors.New(namespace + ": invalid configuration")

	// ErrPoolClosed is returned by Submit and a repeated Wait once the pool
	// has been torn down.
	ErrPoolClosed = errors.New(namespace + ": pool is closed")

	// ErrNilJob is returned by Submit when the job function is nil.
	ErrNilJob = errors.New(namespace + ": job must not be nil")
)

// AbnormalPoolTerminationError is the single failure kind Wait returns. Any
// fatal condition during a batch, whether a unit terminating with nonzero
// status, a wait segment exceeding the per-job timeout, or an interrupt, is
// wrapped in one of these; per-index job errors never are. The batch produced
// no results when this error is returned.
type AbnormalPoolTerminationError struct {
	Cause error
}

func (e *AbnormalPoolTerminationError) Error() string {
	return fmt.Sprintf("%s: abnormal pool termination: %v", namespace, e.Cause)
}

func (e *AbnormalPoolTerminationError) Unwrap() error {
	return e.Cause
}

// UnitTerminatedError reports that an execution unit exited abnormally.
//
// Fields:
//   - UnitID: The terminated unit's identifier
//   - Code: The nonzero status the unit exited with
type UnitTerminatedError struct {
	UnitID int
	Code   int
}

func (e *UnitTerminatedError) Error() string {
	return fmt.Sprintf("%s: unit %d terminated with status %d", namespace, e.UnitID, e.Code)
}

// JobTimeoutError reports that the wait segment for a single job exceeded
// the configured per-job timeout.
//
// Fields:
//   - Index: The submission index of the job being awaited
//   - Timeout: The per-job timeout that was exceeded
type JobTimeoutError struct {
	Index   int
	Timeout time.Duration
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("%s: job %d did not resolve within %s", namespace, e.Index, e.Timeout)
}

// ExitError is the sentinel a job returns (via Exit) to terminate its unit
// with the given status instead of resolving its handle.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: unit exit requested with status %d", namespace, e.Code)
}

// Exit builds the unit-terminating sentinel error. A job returning it never
// resolves: its unit records the status and stops, and the batch fails with
// an AbnormalPoolTerminationError. Status 0 is coerced to 1, since a zero
// status cannot signal abnormal termination.
func Exit(code int) error {
	if code == 0 {
		code = 1
	}
	return &ExitError{Code: code}
}
