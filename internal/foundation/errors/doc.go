// Package errors provides the classified error primitives used across manyvis.
//
// Every failure that leaves a command is a ClassifiedError carrying a category,
// a severity, a retry hint and a structured context. The HTTP and CLI adapters
// turn those into status codes, exit codes and user-facing messages.
//
// Example usage:
//
//	err := errors.IOError("failed to write export").
//		WithContext("path", dest).
//		WithCause(originalErr).
//		Build()
package errors
