package scan

import "fmt"

// ScanError reports an exam PDF that could not be scanned: the file is
// unreadable, is not a PDF, or contains no question boundaries at all.
type ScanError struct {
	Path   string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scan %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("scan %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying cause, if any
func (e *ScanError) Unwrap() error {
	return e.Err
}

func newScanError(path, reason string, err error) *ScanError {
	return &ScanError{Path: path, Reason: reason, Err: err}
}
