// ABOUTME: Path errors raised when the local state directory cannot be prepared
// ABOUTME: Carries the attempted path and actionable hints

package errors

import "fmt"

type PathError struct {
	Purpose       string
	AttemptedPath string
	UnderlyingErr error
}

func NewPathError(purpose, path string, err error) *PathError {
	return &PathError{
		Purpose:       purpose,
		AttemptedPath: path,
		UnderlyingErr: err,
	}
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cannot prepare %s directory at %s: %v", e.Purpose, e.AttemptedPath, e.UnderlyingErr)
}

func (e *PathError) Unwrap() error {
	return e.UnderlyingErr
}

// SuggestedActions lists shell checks for the failing directory.
func (e *PathError) SuggestedActions() []string {
	return []string{
		fmt.Sprintf("Check permissions: ls -ld %s", e.AttemptedPath),
		"Check disk space: df -h",
		"Set XDG_DATA_HOME to a writable directory",
	}
}
