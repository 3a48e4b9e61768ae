// Package util provides shared error types, context helpers and input
// validation for MiniExpress.
//
// # Error Conventions
//
// Packages follow one error pattern:
//
//   - Sentinel errors (errors.New) for stable conditions checked with
//     errors.Is. Example: ErrNotFound.
//   - Structured error types carrying context (ConfigError,
//     HandlerError, ListenerError). Each implements Error(), Unwrap()
//     when it wraps, and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping.
//
// # Context Helpers
//
//	ctx = util.ContextWithRequestID(ctx, "conn-123")
//	id := util.RequestIDFromContext(ctx)
package util
