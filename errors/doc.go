// Package errors provides structured error types for the bcfs module.
//
// Errors are categorized by Phase (which operation failed) and Kind (error category).
// The five filesystem kinds (bad_descriptor, not_found, already_exists,
// invalid_argument, access_denied) form the taxonomy returned to sandboxed code;
// the wasi package maps them onto preview1 errno values.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseOpen, errors.KindAlreadyExists).
//		Path("/opt/testchain/0202.../balance").
//		Detail("special files cannot be created").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.BadDescriptor(errors.PhaseRead, fd)
//	err := errors.NotFound(errors.PhaseResolve, path)
//
// Match by kind regardless of phase with the sentinels:
//
//	if errors.Is(err, errors.ErrNotFound) { ... }
package errors
