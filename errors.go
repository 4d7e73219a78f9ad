package todos

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCreds tags credential verification failures.
	TextCodeInvalidCreds = "INVALID_CREDENTIALS"
	// TextCodeDuplicateIdentity tags registration collisions on email.
	TextCodeDuplicateIdentity = "DUPLICATE_IDENTITY"
	// TextCodeUnauthenticated tags missing/invalid/expired token failures.
	TextCodeUnauthenticated = "UNAUTHENTICATED"
	// TextCodeTokenExpired tags tokens past their embedded expiry.
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenMalformed tags tokens that fail to parse or verify.
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeNotFoundOrForbidden tags owner-scoped lookups that missed.
	TextCodeNotFoundOrForbidden = "NOT_FOUND_OR_FORBIDDEN"
	// TextCodeEmptyTitle tags todo payloads whose title trims to nothing.
	TextCodeEmptyTitle = "EMPTY_TITLE"
	// TextCodeEmptyPassword tags empty password inputs.
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
	// TextCodeSessionDecodeError tags undecodable session payloads.
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword is the single error for both an unknown
// identifier and a failed hash comparison. Keeping the message identical on
// both paths avoids identity enumeration.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateIdentity is returned when registering an email that already
// exists, compared case-insensitively.
var ErrDuplicateIdentity = goerrors.New("an account with that email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(goerrors.CodeBadRequest)

// ErrUnauthenticated covers requests without a verifiable bearer token.
var ErrUnauthenticated = goerrors.New("request is not authenticated", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when the embedded expiry has passed.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature
// verification.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTodoNotFound merges "does not exist" and "owned by someone else" into a
// single variant so a response never reveals whether another owner holds the
// row.
var ErrTodoNotFound = goerrors.New("todo not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFoundOrForbidden).
	WithCode(goerrors.CodeNotFound)

// ErrEmptyTitle rejects todo titles that are empty after trimming.
var ErrEmptyTitle = goerrors.New("title must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyTitle).
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrUnableToDecodeSession unable to decode JWT claims into a session
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsNotFoundOrForbidden reports whether err is the merged owner-scoped miss.
func IsNotFoundOrForbidden(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == TextCodeNotFoundOrForbidden
}

// IsDuplicateIdentity reports whether err is a registration email collision.
func IsDuplicateIdentity(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == TextCodeDuplicateIdentity
}
