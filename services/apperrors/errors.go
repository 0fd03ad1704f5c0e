// Package apperrors defines the error taxonomy surfaced by row, connection and
// settings operations. Every error carries a Kind for programmatic checks and a
// stable Code for API clients.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an error for callers.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindConnectionNotFound
	KindAuthentication
	KindValidationFailed
	KindInvalidPrimaryKey
	KindRowNotFound
	KindDuplicateKey
	KindOperationFailed
	KindNotFound
	KindForbidden
	KindUnsupported
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknown:            "Unknown",
	KindConnectionNotFound: "ConnectionNotFound",
	KindAuthentication:     "AuthenticationError",
	KindValidationFailed:   "ValidationFailed",
	KindInvalidPrimaryKey:  "InvalidPrimaryKey",
	KindRowNotFound:        "RowNotFound",
	KindDuplicateKey:       "DuplicateKey",
	KindOperationFailed:    "OperationFailed",
	KindNotFound:           "NotFound",
	KindForbidden:          "Forbidden",
	KindUnsupported:        "Unsupported",
	KindTimeout:            "Timeout",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// HTTPStatus maps a kind to the status code the HTTP layer answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindConnectionNotFound, KindRowNotFound, KindNotFound:
		return http.StatusNotFound
	case KindAuthentication, KindValidationFailed, KindInvalidPrimaryKey:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindDuplicateKey:
		return http.StatusConflict
	case KindUnsupported:
		return http.StatusNotImplemented
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Stable error codes returned to API clients.
const (
	CodeConnectionNotFound      = "CONNECTION_NOT_FOUND"
	CodeMasterPasswordMissing   = "MASTER_PASSWORD_MISSING"
	CodeMasterPasswordIncorrect = "MASTER_PASSWORD_INCORRECT"
	CodeRowValidationFailed     = "ROW_VALIDATION_FAILED"
	CodePrimaryKeyInvalid       = "PRIMARY_KEY_INVALID"
	CodeRowNotFound             = "ROW_PRIMARY_KEY_NOT_FOUND"
	CodeDuplicateKey            = "CANT_INSERT_DUPLICATE_KEY"
	CodeOperationFailed         = "OPERATION_FAILED"
	CodeNotFound                = "NOT_FOUND"
	CodeForbidden               = "OPERATION_FORBIDDEN"
	CodeUnsupported             = "CONNECTION_TYPE_UNSUPPORTED"
	CodeTimeout                 = "OPERATION_TIMEOUT"
)

// Error is the concrete error type of the taxonomy.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Details lists individual violations when several were aggregated into one error.
	Details []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg = msg + ": " + strings.Join(e.Details, "; ")
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, and of the same code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrConnectionNotFound = &Error{Kind: KindConnectionNotFound}
	ErrAuthentication     = &Error{Kind: KindAuthentication}
	ErrValidationFailed   = &Error{Kind: KindValidationFailed}
	ErrInvalidPrimaryKey  = &Error{Kind: KindInvalidPrimaryKey}
	ErrRowNotFound        = &Error{Kind: KindRowNotFound}
	ErrDuplicateKey       = &Error{Kind: KindDuplicateKey}
	ErrOperationFailed    = &Error{Kind: KindOperationFailed}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrUnsupported        = &Error{Kind: KindUnsupported}
	ErrTimeout            = &Error{Kind: KindTimeout}
)

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first *Error in err's chain, or CodeOperationFailed.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return CodeOperationFailed
}

func ConnectionNotFound(id string) *Error {
	return &Error{Kind: KindConnectionNotFound, Code: CodeConnectionNotFound,
		Message: fmt.Sprintf("connection %q not found", id)}
}

func MasterPasswordMissing() *Error {
	return &Error{Kind: KindAuthentication, Code: CodeMasterPasswordMissing,
		Message: "master password required to decrypt connection"}
}

// MasterPasswordIncorrect wraps the cause (usually an authentication tag mismatch).
func MasterPasswordIncorrect(cause error) *Error {
	return &Error{Kind: KindAuthentication, Code: CodeMasterPasswordIncorrect,
		Message: "master password is incorrect", Err: cause}
}

// ValidationFailed aggregates every violation found into one error.
func ValidationFailed(violations []string) *Error {
	return &Error{Kind: KindValidationFailed, Code: CodeRowValidationFailed,
		Message: "row validation failed", Details: violations}
}

func InvalidPrimaryKey(expected, got []string) *Error {
	return &Error{Kind: KindInvalidPrimaryKey, Code: CodePrimaryKeyInvalid,
		Message: fmt.Sprintf("primary key is invalid: expected columns [%s], got [%s]",
			strings.Join(expected, ", "), strings.Join(got, ", "))}
}

func RowNotFound() *Error {
	return &Error{Kind: KindRowNotFound, Code: CodeRowNotFound,
		Message: "row with this primary key not found"}
}

func DuplicateKey(cause error) *Error {
	return &Error{Kind: KindDuplicateKey, Code: CodeDuplicateKey,
		Message: "cannot insert row: duplicate key", Err: cause}
}

func OperationFailed(cause error) *Error {
	return &Error{Kind: KindOperationFailed, Code: CodeOperationFailed,
		Message: "operation failed", Err: cause}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: what + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: msg}
}

func Unsupported(msg string) *Error {
	return &Error{Kind: KindUnsupported, Code: CodeUnsupported, Message: msg}
}

func Timeout(cause error) *Error {
	return &Error{Kind: KindTimeout, Code: CodeTimeout, Message: "operation timed out", Err: cause}
}
