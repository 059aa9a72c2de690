package errdefs

// causer mirrors the convention used by github.com/pkg/errors: a wrapped
// error can expose the error it wraps via Cause instead of (or alongside)
// the standard Unwrap method.
type causer interface {
	Cause() error
}

// getImplementer walks err looking for a value that implements one of the
// classification interfaces declared in this package. It understands three
// unwrapping conventions: Cause() error (pkg/errors-style wrapping),
// Unwrap() error (standard single-chain wrapping), and Unwrap() []error
// (errors.Join-style multi-wrapping). If nothing in the chain implements a
// known interface, err is returned unchanged.
func getImplementer(err error) error {
	switch e := err.(type) {
	case
		ErrNotFound,
		ErrInvalidParameter,
		ErrConflict,
		ErrUnauthorized,
		ErrUnavailable,
		ErrForbidden,
		ErrSystem,
		ErrNotModified,
		ErrNotImplemented,
		ErrCancelled,
		ErrDeadline,
		ErrDataLoss,
		ErrUnknown:
		return e
	case causer:
		return getImplementer(e.Cause())
	case interface{ Unwrap() []error }:
		for _, sub := range e.Unwrap() {
			if impl := getImplementer(sub); isClassified(impl) {
				return impl
			}
		}
		return err
	case interface{ Unwrap() error }:
		return getImplementer(e.Unwrap())
	default:
		return err
	}
}

// isClassified reports whether err implements one of the classification
// interfaces declared in this package.
func isClassified(err error) bool {
	switch err.(type) {
	case
		ErrNotFound,
		ErrInvalidParameter,
		ErrConflict,
		ErrUnauthorized,
		ErrUnavailable,
		ErrForbidden,
		ErrSystem,
		ErrNotModified,
		ErrNotImplemented,
		ErrCancelled,
		ErrDeadline,
		ErrDataLoss,
		ErrUnknown:
		return true
	default:
		return false
	}
}
