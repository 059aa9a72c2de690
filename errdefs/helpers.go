package errdefs

type errNotFound struct{ error }

func (e errNotFound) NotFound() {}

func (e errNotFound) Cause() error { return e.error }

func (e errNotFound) Unwrap() error { return e.error }

// NotFound wraps the given error with errNotFound, turning it into an
// ErrNotFound. Returns nil if err is nil.
func NotFound(err error) error {
	if err == nil {
		return nil
	}
	return errNotFound{err}
}

// IsNotFound returns true if the error or one of its causes/wrapped errors
// is an ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := getImplementer(err).(ErrNotFound)
	return ok
}

type errInvalidParameter struct{ error }

func (e errInvalidParameter) InvalidParameter() {}

func (e errInvalidParameter) Cause() error { return e.error }

func (e errInvalidParameter) Unwrap() error { return e.error }

// InvalidParameter wraps the given error with errInvalidParameter, turning
// it into an ErrInvalidParameter. Returns nil if err is nil.
func InvalidParameter(err error) error {
	if err == nil {
		return nil
	}
	return errInvalidParameter{err}
}

// IsInvalidParameter returns true if the error or one of its causes/wrapped
// errors is an ErrInvalidParameter.
func IsInvalidParameter(err error) bool {
	_, ok := getImplementer(err).(ErrInvalidParameter)
	return ok
}

type errConflict struct{ error }

func (e errConflict) Conflict() {}

func (e errConflict) Cause() error { return e.error }

func (e errConflict) Unwrap() error { return e.error }

// Conflict wraps the given error with errConflict, turning it into an
// ErrConflict. Returns nil if err is nil.
func Conflict(err error) error {
	if err == nil {
		return nil
	}
	return errConflict{err}
}

// IsConflict returns true if the error or one of its causes/wrapped errors
// is an ErrConflict.
func IsConflict(err error) bool {
	_, ok := getImplementer(err).(ErrConflict)
	return ok
}

type errUnauthorized struct{ error }

func (e errUnauthorized) Unauthorized() {}

func (e errUnauthorized) Cause() error { return e.error }

func (e errUnauthorized) Unwrap() error { return e.error }

// Unauthorized wraps the given error, turning it into an ErrUnauthorized.
// Returns nil if err is nil.
func Unauthorized(err error) error {
	if err == nil {
		return nil
	}
	return errUnauthorized{err}
}

// IsUnauthorized returns true if the error or one of its causes/wrapped
// errors is an ErrUnauthorized.
func IsUnauthorized(err error) bool {
	_, ok := getImplementer(err).(ErrUnauthorized)
	return ok
}

type errUnavailable struct{ error }

func (e errUnavailable) Unavailable() {}

func (e errUnavailable) Cause() error { return e.error }

func (e errUnavailable) Unwrap() error { return e.error }

// Unavailable wraps the given error, turning it into an ErrUnavailable.
// Returns nil if err is nil.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return errUnavailable{err}
}

// IsUnavailable returns true if the error or one of its causes/wrapped
// errors is an ErrUnavailable.
func IsUnavailable(err error) bool {
	_, ok := getImplementer(err).(ErrUnavailable)
	return ok
}

type errForbidden struct{ error }

func (e errForbidden) Forbidden() {}

func (e errForbidden) Cause() error { return e.error }

func (e errForbidden) Unwrap() error { return e.error }

// Forbidden wraps the given error, turning it into an ErrForbidden. Returns
// nil if err is nil.
func Forbidden(err error) error {
	if err == nil {
		return nil
	}
	return errForbidden{err}
}

// IsForbidden returns true if the error or one of its causes/wrapped errors
// is an ErrForbidden.
func IsForbidden(err error) bool {
	_, ok := getImplementer(err).(ErrForbidden)
	return ok
}

type errSystem struct{ error }

func (e errSystem) System() {}

func (e errSystem) Cause() error { return e.error }

func (e errSystem) Unwrap() error { return e.error }

// System wraps the given error, turning it into an ErrSystem. Returns nil
// if err is nil.
func System(err error) error {
	if err == nil {
		return nil
	}
	return errSystem{err}
}

// IsSystem returns true if the error or one of its causes/wrapped errors is
// an ErrSystem.
func IsSystem(err error) bool {
	_, ok := getImplementer(err).(ErrSystem)
	return ok
}

type errNotModified struct{ error }

func (e errNotModified) NotModified() {}

func (e errNotModified) Cause() error { return e.error }

func (e errNotModified) Unwrap() error { return e.error }

// NotModified wraps the given error, turning it into an ErrNotModified.
// Returns nil if err is nil.
func NotModified(err error) error {
	if err == nil {
		return nil
	}
	return errNotModified{err}
}

// IsNotModified returns true if the error or one of its causes/wrapped
// errors is an ErrNotModified.
func IsNotModified(err error) bool {
	_, ok := getImplementer(err).(ErrNotModified)
	return ok
}

type errNotImplemented struct{ error }

func (e errNotImplemented) NotImplemented() {}

func (e errNotImplemented) Cause() error { return e.error }

func (e errNotImplemented) Unwrap() error { return e.error }

// NotImplemented wraps the given error, turning it into an
// ErrNotImplemented. Returns nil if err is nil.
func NotImplemented(err error) error {
	if err == nil {
		return nil
	}
	return errNotImplemented{err}
}

// IsNotImplemented returns true if the error or one of its causes/wrapped
// errors is an ErrNotImplemented.
func IsNotImplemented(err error) bool {
	_, ok := getImplementer(err).(ErrNotImplemented)
	return ok
}

type errCancelled struct{ error }

func (e errCancelled) Cancelled() {}

func (e errCancelled) Cause() error { return e.error }

func (e errCancelled) Unwrap() error { return e.error }

// Cancelled wraps the given error, turning it into an ErrCancelled. Returns
// nil if err is nil.
func Cancelled(err error) error {
	if err == nil {
		return nil
	}
	return errCancelled{err}
}

// IsCancelled returns true if the error or one of its causes/wrapped errors
// is an ErrCancelled.
func IsCancelled(err error) bool {
	_, ok := getImplementer(err).(ErrCancelled)
	return ok
}

type errDeadline struct{ error }

func (e errDeadline) DeadlineExceeded() {}

func (e errDeadline) Cause() error { return e.error }

func (e errDeadline) Unwrap() error { return e.error }

// Deadline wraps the given error, turning it into an ErrDeadline. Returns
// nil if err is nil.
func Deadline(err error) error {
	if err == nil {
		return nil
	}
	return errDeadline{err}
}

// IsDeadline returns true if the error or one of its causes/wrapped errors
// is an ErrDeadline.
func IsDeadline(err error) bool {
	_, ok := getImplementer(err).(ErrDeadline)
	return ok
}

type errDataLoss struct{ error }

func (e errDataLoss) DataLoss() {}

func (e errDataLoss) Cause() error { return e.error }

func (e errDataLoss) Unwrap() error { return e.error }

// DataLoss wraps the given error, turning it into an ErrDataLoss. Returns
// nil if err is nil.
func DataLoss(err error) error {
	if err == nil {
		return nil
	}
	return errDataLoss{err}
}

// IsDataLoss returns true if the error or one of its causes/wrapped errors
// is an ErrDataLoss.
func IsDataLoss(err error) bool {
	_, ok := getImplementer(err).(ErrDataLoss)
	return ok
}

type errUnknown struct{ error }

func (e errUnknown) Unknown() {}

func (e errUnknown) Cause() error { return e.error }

func (e errUnknown) Unwrap() error { return e.error }

// Unknown wraps the given error, turning it into an ErrUnknown. Returns nil
// if err is nil.
func Unknown(err error) error {
	if err == nil {
		return nil
	}
	return errUnknown{err}
}

// IsUnknown returns true if the error or one of its causes/wrapped errors is
// an ErrUnknown.
func IsUnknown(err error) bool {
	_, ok := getImplementer(err).(ErrUnknown)
	return ok
}
