package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Composition errors, raised synchronously by builder calls.
const (
	// ErrCodeArgumentInvalid indicates an absent source, predicate, selector
	// or settings value, or a negative degree of parallelism.
	ErrCodeArgumentInvalid ErrorCode = "ARGUMENT_INVALID"
)

// Session errors, surfaced through the result enumerator.
const (
	// ErrCodeWorkerFault indicates that the source, a predicate or a selector
	// failed inside a worker.
	ErrCodeWorkerFault ErrorCode = "WORKER_FAULT"
	// ErrCodeOperationCanceled indicates that a worker observed an active
	// cancellation signal before running the selector.
	ErrCodeOperationCanceled ErrorCode = "OPERATION_CANCELED"
	// ErrCodeConsumerCanceled indicates that the consumer's own wait was
	// interrupted by cancellation.
	ErrCodeConsumerCanceled ErrorCode = "CONSUMER_CANCELED"
)

var cancellationCodes = map[ErrorCode]bool{
	ErrCodeOperationCanceled: true,
	ErrCodeConsumerCanceled:  true,
}

// IsCancellationCode returns true if the code reports a cancellation rather
// than a failure.
func IsCancellationCode(code ErrorCode) bool {
	return cancellationCodes[code]
}
