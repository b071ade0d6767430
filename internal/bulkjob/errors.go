package bulkjob

import "errors"

var (
	// ErrNoJob is returned when an operation needs a tracked job and none exists
	ErrNoJob = errors.New("no distribution job is being tracked for this coupon")

	// ErrJobInFlight is returned when a job for the coupon is still pending or running
	ErrJobInFlight = errors.New("a distribution job for this coupon is already in flight")

	// ErrNotCancellable is returned when cancelling a job that is not pending or running
	ErrNotCancellable = errors.New("only pending or running jobs can be cancelled")

	// ErrNotRetryable is returned when retrying a job that is not failed or cancelled
	ErrNotRetryable = errors.New("only failed or cancelled jobs can be retried")
)
