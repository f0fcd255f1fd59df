// Package errors provides the error taxonomy of the parallel query engine.
// Every failure that reaches a caller is an *AppError carrying a
// machine-readable code, so callers can branch on what went wrong without
// string matching.
package errors
