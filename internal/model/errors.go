package model

import (
	"errors"
	"fmt"
)

// Token decode failures. These are expected validation outcomes, returned as
// values rather than raised; callers branch on them with errors.Is.
var (
	// ErrNotAppToken means the scanned string carries no application
	// marker and should be treated as somebody else's QR code.
	ErrNotAppToken = errors.New("token does not carry application marker")
	// ErrMalformedToken covers structural, cryptographic-stream and parse
	// failures. The distinction between bad padding and bad JSON is
	// deliberately not exposed.
	ErrMalformedToken = errors.New("token is malformed")
	// ErrSignatureInvalid means the HMAC over the encrypted blob did not
	// verify. Checked before any decryption is attempted.
	ErrSignatureInvalid = errors.New("token signature is invalid")
	// ErrTokenExpired means the decoded session is past its expiration.
	ErrTokenExpired = errors.New("token expired")
	// ErrTemporalKeyInvalid means the embedded temporal key does not match
	// the one derived from the decoded session identity.
	ErrTemporalKeyInvalid = errors.New("temporal key mismatch")
	// ErrFutureDated means the token claims a generation time too far in
	// the future to be explained by clock skew.
	ErrFutureDated = errors.New("token is future-dated")
)

// ErrNotFound is returned by stores when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateAttendance is returned by the attendance store when the
// (session, matric number) pair already has a confirmed row.
var ErrDuplicateAttendance = errors.New("attendance already recorded")

// ErrDeviceAlreadyUsed is returned by the attendance store when the device
// GUID already confirmed a different matric number for the session.
var ErrDeviceAlreadyUsed = errors.New("device already used for this session")

// IsSecurityError reports whether a decode failure indicates potential
// tampering. These are logged distinctly from ordinary failures.
func IsSecurityError(err error) bool {
	return errors.Is(err, ErrSignatureInvalid) || errors.Is(err, ErrTemporalKeyInvalid)
}

// ErrorCode identifies one scan or sync failure, local or remote-reported.
type ErrorCode string

// Local scan rejection codes.
const (
	CodeInvalidQRFormat          ErrorCode = "INVALID_QR_FORMAT"
	CodeOfflineNotSupported      ErrorCode = "OFFLINE_NOT_SUPPORTED"
	CodeDuplicateOfflineRecord   ErrorCode = "DUPLICATE_OFFLINE_RECORD"
	CodeDeviceAlreadyUsedOffline ErrorCode = "DEVICE_ALREADY_USED_OFFLINE"
)

// Remote validation function codes.
const (
	CodeDuplicateAttendance     ErrorCode = "DUPLICATE_ATTENDANCE"
	CodeSessionNotFound         ErrorCode = "SESSION_NOT_FOUND"
	CodeTemporalKeyExpired      ErrorCode = "TEMPORAL_KEY_EXPIRED"
	CodeTemporalKeyMissing      ErrorCode = "TEMPORAL_KEY_MISSING"
	CodeDeviceSecurityViolation ErrorCode = "DEVICE_SECURITY_VIOLATION"
	CodeDeviceGUIDMissing       ErrorCode = "DEVICE_GUID_MISSING"
	CodeMatricNumberMissing     ErrorCode = "MATRIC_NUMBER_MISSING"
	CodeSessionQueryError       ErrorCode = "SESSION_QUERY_ERROR"
	CodeAttendanceUpdateError   ErrorCode = "ATTENDANCE_UPDATE_ERROR"
	CodeNetworkError            ErrorCode = "NETWORK_ERROR"
	CodeInvalidJSON             ErrorCode = "INVALID_JSON"
	CodeMissingParameters       ErrorCode = "MISSING_PARAMETERS"
	CodeInvalidSignature        ErrorCode = "INVALID_SIGNATURE"
)

// Retryable reports whether a failure with this code may be attempted again.
// Everything else is terminal for the record that produced it.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeSessionQueryError, CodeAttendanceUpdateError, CodeNetworkError:
		return true
	default:
		return false
	}
}

// RemoteError is a failure reported by (or on the way to) the remote
// validation function.
type RemoteError struct {
	Code    ErrorCode
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the call may be repeated for the same record.
func (e *RemoteError) Retryable() bool {
	return e.Code.Retryable()
}

// NewRemoteError creates a RemoteError with the given code and message.
func NewRemoteError(code ErrorCode, message string) *RemoteError {
	return &RemoteError{Code: code, Message: message}
}
