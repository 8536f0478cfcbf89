// ABOUTME: Error taxonomy for the chat client with user-facing explanations
// ABOUTME: Classifies failures as precondition, transient, validation, or side-channel

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind decides how a failure is handled: retried, surfaced, or swallowed.
type Kind int

const (
	// KindTransient covers network and backend failures. Retried with backoff.
	KindTransient Kind = iota
	// KindPrecondition covers missing user id or backend session mapping. Never retried.
	KindPrecondition
	// KindValidation covers rejected input such as oversized files. No network call is made.
	KindValidation
	// KindSideChannel covers best-effort work. Logged, never shown to the user.
	KindSideChannel
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPrecondition:
		return "precondition"
	case KindValidation:
		return "validation"
	case KindSideChannel:
		return "side_channel"
	default:
		return "unknown"
	}
}

var (
	ErrMissingUserID    = stderrors.New("user id is required")
	ErrNoBackendSession = stderrors.New("no backend session for active chat")
	ErrNoActiveSession  = stderrors.New("no active chat session")
	ErrSendInProgress   = stderrors.New("a message is already being sent in this chat")
	ErrFileTooLarge     = stderrors.New("file exceeds size limit")
	ErrFileType         = stderrors.New("file type not allowed")
	ErrNoStagedFile     = stderrors.New("no file staged")
	ErrEmptyMessage     = stderrors.New("message is empty")
	ErrNotSupported     = stderrors.New("operation not supported")
	ErrNetworkLost      = stderrors.New("Network connection lost")
	ErrNotRetryable     = stderrors.New("only failed messages can be retried")
)

// Error carries classification and guidance alongside the underlying cause.
type Error struct {
	Kind             Kind
	Op               string
	Explanation      string
	SuggestedActions []string
	Recoverable      bool
	Err              error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage renders the explanation and the first suggested action.
func (e *Error) UserMessage() string {
	var sb strings.Builder
	if e.Explanation != "" {
		sb.WriteString(e.Explanation)
	} else {
		sb.WriteString(e.Err.Error())
	}
	if len(e.SuggestedActions) > 0 {
		sb.WriteString(" ")
		sb.WriteString(e.SuggestedActions[0])
	}
	return sb.String()
}

// KindOf returns the classification of err. Unclassified errors are transient.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsRecoverable reports whether the user can act to fix err.
func IsRecoverable(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Recoverable
	}
	return true
}

// UserMessage returns the best user-facing text for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.UserMessage()
	}
	return err.Error()
}

func NewMissingUserIDError(op string) *Error {
	return &Error{
		Kind:        KindPrecondition,
		Op:          op,
		Explanation: "You need to be signed in to chat.",
		SuggestedActions: []string{
			"Sign in and try again.",
		},
		Recoverable: false,
		Err:         ErrMissingUserID,
	}
}

func NewNoBackendSessionError(op string) *Error {
	return &Error{
		Kind:        KindPrecondition,
		Op:          op,
		Explanation: "This chat is not connected to the server.",
		SuggestedActions: []string{
			"Start a new chat session.",
		},
		Recoverable: true,
		Err:         ErrNoBackendSession,
	}
}

func NewSendInProgressError(op string) *Error {
	return &Error{
		Kind:        KindPrecondition,
		Op:          op,
		Explanation: "Please wait for the previous message to finish sending.",
		Recoverable: true,
		Err:         ErrSendInProgress,
	}
}

func NewNotRetryableError(op string) *Error {
	return &Error{
		Kind:        KindPrecondition,
		Op:          op,
		Explanation: "Only messages that failed to send can be retried.",
		Recoverable: false,
		Err:         ErrNotRetryable,
	}
}

func NewFileTooLargeError(name string, size, limit int64) *Error {
	return &Error{
		Kind:        KindValidation,
		Op:          "stage",
		Explanation: fmt.Sprintf("%s is %s; the limit is %s.", name, humanBytes(size), humanBytes(limit)),
		SuggestedActions: []string{
			"Choose a smaller file.",
		},
		Recoverable: true,
		Err:         ErrFileTooLarge,
	}
}

func NewFileTypeError(name, mimeType string) *Error {
	return &Error{
		Kind:        KindValidation,
		Op:          "stage",
		Explanation: fmt.Sprintf("%s has type %q which cannot be uploaded.", name, mimeType),
		SuggestedActions: []string{
			"Upload an image, PDF, text, or Word document.",
		},
		Recoverable: true,
		Err:         ErrFileType,
	}
}

// NewSideChannelError wraps a best-effort failure so it is logged, not shown.
func NewSideChannelError(op string, err error) *Error {
	return &Error{
		Kind:        KindSideChannel,
		Op:          op,
		Recoverable: true,
		Err:         err,
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
