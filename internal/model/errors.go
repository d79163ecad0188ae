package model

// ScanError is the single failure value a batch can produce.
// Message is human-readable and safe to show to callers; Cause keeps the
// underlying error for errors.Is/As.
type ScanError struct {
	Message string
	Cause   error
}

// NewScanError creates a ScanError. When cause is non-nil its text is
// appended to msg.
func NewScanError(msg string, cause error) *ScanError {
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return &ScanError{Message: msg, Cause: cause}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ScanError) Unwrap() error {
	return e.Cause
}
