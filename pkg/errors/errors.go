package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a provisioning failure so callers can decide whether the
// operator should correct input, retry manually, or give up.
type Kind string

const (
	// KindMalformed marks an email address that failed round-trip validation.
	KindMalformed Kind = "MALFORMED_EMAIL"
	// KindFormatMismatch marks a phone number whose digits do not match any
	// region format, or whose length differs from the matched region.
	KindFormatMismatch Kind = "PHONE_FORMAT_MISMATCH"
	// KindDuplicateUser marks a username that already exists in the backend.
	KindDuplicateUser Kind = "DUPLICATE_USER"
	// KindDuplicateInvitation marks a username with an open invitation.
	KindDuplicateInvitation Kind = "DUPLICATE_INVITATION"
	// KindUnknownGroup marks a group name the backend does not know. It is
	// recovered locally; the group is dropped and the attempt continues.
	KindUnknownGroup Kind = "UNKNOWN_GROUP"
	// KindBackendError marks any identity-backend call failure.
	KindBackendError Kind = "BACKEND_ERROR"
)

// AppError is a structured error carrying the provisioning failure kind.
type AppError struct {
	Kind     Kind   `json:"kind"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches AppErrors by kind so sentinel values compare with errors.Is
// even after WithInternal or WithMessagef produced a copy.
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	return ok && e != nil && other != nil && e.Kind == other.Kind
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessagef returns a copy of the AppError with a formatted message.
func (e *AppError) WithMessagef(format string, args ...any) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = fmt.Sprintf(format, args...)
	return &cpy
}

// Sentinels for the provisioning failure taxonomy.
var (
	ErrMalformed = &AppError{
		Kind:    KindMalformed,
		Message: "Email address failed validation",
	}

	ErrFormatMismatch = &AppError{
		Kind:    KindFormatMismatch,
		Message: "Phone number does not match a known region format",
	}

	ErrDuplicateUser = &AppError{
		Kind:    KindDuplicateUser,
		Message: "Username already exists in the backend",
	}

	ErrDuplicateInvitation = &AppError{
		Kind:    KindDuplicateInvitation,
		Message: "An open invitation already exists for this username",
	}

	ErrUnknownGroup = &AppError{
		Kind:    KindUnknownGroup,
		Message: "Group is not known to the backend",
	}

	ErrBackend = &AppError{
		Kind:    KindBackendError,
		Message: "Identity backend request failed",
	}
)

// New builds a new application error with the provided metadata.
func New(kind Kind, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
	}
}

// Wrap turns any error into a backend-kind AppError while keeping the
// original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Kind:     KindBackendError,
		Message:  message,
		Internal: err,
	}
}

// KindOf extracts the failure kind from an error chain, defaulting to
// KindBackendError for errors this package did not produce.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	return KindBackendError
}
