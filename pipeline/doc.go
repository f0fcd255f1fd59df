// Package pipeline runs long per-item work over a sequence in parallel.
//
// A query is composed lazily from a source with Where and Select and is
// executed only when enumerated. Each enumeration starts a fresh session:
// a fixed number of workers take items one at a time from a shared cursor,
// filter and transform them, and publish results to a bounded channel that
// the consumer drains. Results arrive in completion order, not source order.
//
// Composition flattens: however long the chain, a query holds one combined
// predicate over the source item and one combined selector. Settings
// (degree of parallelism, cancellation signal, buffer size, diagnostics,
// metrics) are shared by every query of a chain, so WithDegreeOfParallelism
// on any of them changes all of them. A session freezes the settings it
// starts with.
//
// # Faults
//
// The first failure inside a session wins: it is retained, the other
// workers stop at their next check, and the consumer receives it on every
// later Next. Failures that lose the race are handed to the DiagnosticSink.
// Errors are *errors.AppError values with codes ARGUMENT_INVALID (builder
// calls), WORKER_FAULT, OPERATION_CANCELED and CONSUMER_CANCELED.
//
// # Usage
//
//	root, _ := pipeline.AsLongParallel(pipeline.FromSlice(paths))
//	files, _ := pipeline.Where(root, isRegularFile)
//	sums, _ := pipeline.Select(files, hashFile)
//	sums, _ = pipeline.WithDegreeOfParallelism(sums, 8)
//
//	for sum, err := range sums.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(sum)
//	}
package pipeline
