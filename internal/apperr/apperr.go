package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the caller.
type Kind int

const (
	Internal Kind = iota
	NotFound
	Conflict
	Unauthorized
	ValidationFailed
	UpstreamFailure
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case ValidationFailed:
		return "validation_failed"
	case UpstreamFailure:
		return "upstream_failure"
	default:
		return "internal"
	}
}

// Status returns the default HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	case ValidationFailed:
		return http.StatusBadRequest
	case UpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a stable machine-readable Code along with its Kind and the HTTP
// status the API answers with. Two errors are equal under errors.Is when their
// codes match.
type Error struct {
	Kind   Kind
	Code   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e with err attached as the cause.
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Status: e.Status, Err: err}
}

func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code, Status: kind.Status()}
}

// WithStatus overrides the HTTP status of the kind.
func WithStatus(kind Kind, code string, status int) *Error {
	return &Error{Kind: kind, Code: code, Status: status}
}

// Upstream wraps a store or collaborator fault.
func Upstream(err error) *Error {
	return ErrUpstream.Wrap(err)
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, Internal when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

var (
	ErrUpstream = New(UpstreamFailure, "UPSTREAM_FAILURE")
	ErrInternal = New(Internal, "INTERNAL_ERROR")

	ErrUserNotFound      = New(NotFound, "USER_NOT_FOUND")
	ErrUserAlreadyExists = New(Conflict, "USER_ALREADY_EXISTS")
	ErrProtectedField    = New(ValidationFailed, "PROTECTED_FIELD")
	ErrEmptyUpdate       = New(ValidationFailed, "NOTHING_TO_UPDATE")
	ErrNoFile            = New(ValidationFailed, "NO_FILE_PROVIDED")

	ErrTokenMissing            = New(Unauthorized, "NOT_TOKEN")
	ErrInvalidToken            = New(Unauthorized, "INVALID_TOKEN")
	ErrNoSession               = New(Unauthorized, "NOT_SESSION")
	ErrInvalidPassword         = New(Unauthorized, "INVALID_PASSWORD")
	ErrEmailNotVerified        = WithStatus(Unauthorized, "EMAIL_NOT_VERIFIED", http.StatusForbidden)
	ErrInvalidVerificationCode = WithStatus(Unauthorized, "INVALID_VERIFICATION_CODE", http.StatusBadRequest)
	ErrVerificationLocked      = WithStatus(Unauthorized, "VERIFICATION_ATTEMPTS_EXCEEDED", http.StatusTooManyRequests)
	ErrAlreadyVerified         = New(Conflict, "EMAIL_ALREADY_VERIFIED")
	ErrInvalidOrExpiredToken   = WithStatus(Unauthorized, "INVALID_OR_EXPIRED_TOKEN", http.StatusBadRequest)

	ErrNoCompany                = WithStatus(ValidationFailed, "YOU_NEED_A_COMPANY_TO_INVITE", http.StatusBadRequest)
	ErrCannotInviteYourself     = New(Conflict, "CANNOT_INVITE_YOURSELF")
	ErrInvitationAlreadySent    = New(Conflict, "INVITATION_ALREADY_SENT")
	ErrAlreadyMember            = New(Conflict, "USER_ALREADY_IN_COMPANY")
	ErrInvitationNotFound       = New(NotFound, "INVITATION_NOT_FOUND_OR_ALREADY_PROCESSED")
	ErrInviterOrCompanyNotFound = New(NotFound, "INVITER_OR_COMPANY_NOT_FOUND")
)
