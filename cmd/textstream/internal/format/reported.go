package format

import "errors"

type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }

// Reported marks err as already printed to the user.
func Reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err}
}

// IsReported reports whether err was marked with Reported.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
