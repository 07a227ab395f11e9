package utils

// StatusError is an error carrying the HTTP status it should surface as.
type StatusError struct {
	error
	status int
}

// Status returns the HTTP status code of the error.
func (se StatusError) Status() int {
	return se.status
}

// NewStatusError wraps err with an HTTP status code.
func NewStatusError(err error, s int) error {
	return StatusError{error: err, status: s}
}
