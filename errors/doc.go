// Package errors provides structured error types for the spvcross library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Every failure reported by the foreign compiler library is
// funneled through a single translation point in the core and surfaces as an
// *Error carrying the foreign message and the context it came from.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseReflect, errors.KindForeign).
//		Detail("query active interface variables").
//		Context(uint32(ctxPtr)).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfMemory(errors.PhaseContext)
//	err := errors.InvalidHandle(errors.PhaseReflect, 13, "set enabled variables")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
