// Package errors provides centralized error definitions and error handling utilities
// for the parley client. It defines the failure taxonomy every layer reports in,
// error constructors with context wrapping, and classification helpers used by the
// presentation layer to decide what to show the user.
//
// # Error Kinds
//
// Every client error carries a [Kind]:
//   - Input: a required field was empty; recovered locally
//   - Auth: credentials rejected or the token expired/was revoked
//   - TwoFactor: login needs a second factor, which is not supported
//   - Remote: the service answered with a non-2xx status
//   - Transport: the network failed or the response was malformed
//   - InvalidSelection / NoChannelSelected: the UI asked for something the
//     navigation cache does not hold
//   - NotAuthenticated: an action needed a session and none exists
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewInputError("message")
//	err := errors.NewAPIError("fetch_guilds", errors.KindRemote).WithStatus(500)
//	err := errors.NewSelectionError(errors.KindInvalidSelection, "guild", "999")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrAuthRejected) { ... }
//	if errors.KindOf(err) == errors.KindRemote { ... }
//	status.SetText(errors.UserMessage(err))
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Kind classifies a failure by how the client recovers from it.
type Kind int

const (
	// KindUnknown is reported for errors outside the taxonomy.
	KindUnknown Kind = iota
	KindInput
	KindAuth
	KindTwoFactor
	KindRemote
	KindTransport
	KindInvalidSelection
	KindNoChannelSelected
	KindNotAuthenticated
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindAuth:
		return "auth"
	case KindTwoFactor:
		return "two_factor"
	case KindRemote:
		return "remote"
	case KindTransport:
		return "transport"
	case KindInvalidSelection:
		return "invalid_selection"
	case KindNoChannelSelected:
		return "no_channel_selected"
	case KindNotAuthenticated:
		return "not_authenticated"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrEmptyInput indicates that a required field was blank.
	ErrEmptyInput = New("input cannot be empty")
	// ErrAuthRejected indicates that the service rejected the credentials or token.
	ErrAuthRejected = New("authentication rejected")
	// ErrTwoFactorRequired indicates that login needs a second factor.
	ErrTwoFactorRequired = New("two-factor authentication required")
	// ErrRemote indicates a non-2xx answer from the service.
	ErrRemote = New("remote error")
	// ErrTransport indicates the request did not complete or the answer was unreadable.
	ErrTransport = New("transport error")
	// ErrInvalidSelection indicates a guild or channel not present in the cache.
	ErrInvalidSelection = New("invalid selection")
	// ErrNoChannelSelected indicates an action that needs an active channel.
	ErrNoChannelSelected = New("no channel selected")
	// ErrNotAuthenticated indicates an action that needs a session.
	ErrNotAuthenticated = New("not logged in")
	// ErrSessionExpired is returned by the dispatcher after an auth rejection
	// demoted the session.
	ErrSessionExpired = New("session expired")
	// ErrNoSavedCredential indicates that no token has been persisted.
	ErrNoSavedCredential = New("no saved credential")
	// ErrLoginInProgress indicates a second login while one is in flight.
	ErrLoginInProgress = New("login already in progress")
)

// sentinelFor maps a kind to the sentinel matched by errors.Is.
func sentinelFor(k Kind) error {
	switch k {
	case KindInput:
		return ErrEmptyInput
	case KindAuth:
		return ErrAuthRejected
	case KindTwoFactor:
		return ErrTwoFactorRequired
	case KindRemote:
		return ErrRemote
	case KindTransport:
		return ErrTransport
	case KindInvalidSelection:
		return ErrInvalidSelection
	case KindNoChannelSelected:
		return ErrNoChannelSelected
	case KindNotAuthenticated:
		return ErrNotAuthenticated
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ClientError is the base interface for all parley errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ClientError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Kind returns the taxonomy bucket of this error.
	Kind() Kind

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the user may retry the same action manually.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	kind       Kind
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is matches the sentinel for the error's kind, then the cause chain.
func (e *baseError) Is(target error) bool {
	if s := sentinelFor(e.kind); s != nil && target == s {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Kind returns the error kind.
func (e *baseError) Kind() Kind {
	return e.kind
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// InputError
// -----------------------------------------------------------------------------

// InputError reports a blank required field. No state changes and no network
// call happen when one is returned.
//
// Example:
//
//	err := errors.NewInputError("message")
//	fmt.Println(err) // "input error [field=message]: input cannot be empty"
type InputError struct {
	baseError
	Field string
}

// NewInputError creates a new InputError for the named field.
func NewInputError(field string) *InputError {
	return &InputError{
		baseError: baseError{
			kind:       KindInput,
			message:    ErrEmptyInput.Error(),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Field: field,
	}
}

// Error returns the formatted error message.
func (e *InputError) Error() string {
	if e.Field == "" {
		return "input error: " + e.message
	}
	return fmt.Sprintf("input error [field=%s]: %s", e.Field, e.message)
}

// Is checks if this error matches the target.
func (e *InputError) Is(target error) bool {
	if _, ok := target.(*InputError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// APIError
// -----------------------------------------------------------------------------

// APIError is the tagged failure outcome of a remote call. Kind is one of
// KindAuth, KindTwoFactor, KindRemote or KindTransport.
//
// Example:
//
//	err := errors.NewAPIError("fetch_channels", errors.KindRemote).
//	    WithStatus(404).WithRemoteMessage(10003, "Unknown Channel")
type APIError struct {
	baseError
	Op     string
	Status int
	Code   int
	// Message is the server-supplied message, empty when none was sent.
	Message string
}

// NewAPIError creates a new APIError for the named operation.
func NewAPIError(op string, kind Kind) *APIError {
	e := &APIError{
		baseError: baseError{
			kind:       kind,
			severity:   SeverityError,
			userFacing: true,
		},
		Op: op,
	}
	switch kind {
	case KindAuth:
		e.message = ErrAuthRejected.Error()
		e.severity = SeverityWarning
	case KindTwoFactor:
		e.message = ErrTwoFactorRequired.Error()
		e.severity = SeverityWarning
	case KindRemote:
		e.message = ErrRemote.Error()
		e.retryable = true
	case KindTransport:
		e.message = ErrTransport.Error()
		e.retryable = true
		e.userFacing = false
	default:
		e.message = "api error"
	}
	return e
}

// WithStatus records the HTTP status code.
func (e *APIError) WithStatus(status int) *APIError {
	e.Status = status
	return e
}

// WithRemoteMessage records the code and message from the error body.
func (e *APIError) WithRemoteMessage(code int, message string) *APIError {
	e.Code = code
	e.Message = message
	return e
}

// WithCause adds a cause to the error.
func (e *APIError) WithCause(cause error) *APIError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *APIError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("code=%d", e.Code))
	}

	prefix := "api error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("api error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *APIError) Is(target error) bool {
	if _, ok := target.(*APIError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// SelectionError
// -----------------------------------------------------------------------------

// SelectionError reports a navigation request that does not match the cache:
// an unknown guild or channel, a non-joinable channel, or an action that needs
// a channel when none is selected.
type SelectionError struct {
	baseError
	Level string // "guild" or "channel"
	ID    string
}

// NewSelectionError creates a SelectionError. kind is KindInvalidSelection or
// KindNoChannelSelected.
func NewSelectionError(kind Kind, level, id string) *SelectionError {
	msg := ErrInvalidSelection.Error()
	if kind == KindNoChannelSelected {
		msg = ErrNoChannelSelected.Error()
	}
	return &SelectionError{
		baseError: baseError{
			kind:       kind,
			message:    msg,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Level: level,
		ID:    id,
	}
}

// WithReason appends detail to the message.
func (e *SelectionError) WithReason(reason string) *SelectionError {
	e.message = fmt.Sprintf("%s: %s", e.message, reason)
	return e
}

// Error returns the formatted error message.
func (e *SelectionError) Error() string {
	var parts []string
	if e.Level != "" {
		parts = append(parts, e.Level+"="+e.ID)
	}
	if len(parts) == 0 {
		return "selection error: " + e.message
	}
	return fmt.Sprintf("selection error [%s]: %s", strings.Join(parts, ", "), e.message)
}

// Is checks if this error matches the target.
func (e *SelectionError) Is(target error) bool {
	if _, ok := target.(*SelectionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// SessionError
// -----------------------------------------------------------------------------

// SessionError reports an action refused or aborted because of session state:
// not logged in, or demoted after the service rejected the token.
type SessionError struct {
	baseError
}

// NewNotAuthenticatedError creates the error returned when no session exists.
func NewNotAuthenticatedError() *SessionError {
	return &SessionError{baseError: baseError{
		kind:       KindNotAuthenticated,
		message:    ErrNotAuthenticated.Error(),
		severity:   SeverityWarning,
		userFacing: true,
	}}
}

// NewSessionExpiredError wraps the auth failure that demoted the session.
func NewSessionExpiredError(cause error) *SessionError {
	return &SessionError{baseError: baseError{
		kind:       KindAuth,
		message:    ErrSessionExpired.Error(),
		cause:      cause,
		severity:   SeverityWarning,
		userFacing: true,
	}}
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("session error: %s: %v", e.message, e.cause)
	}
	return "session error: " + e.message
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	if target == ErrSessionExpired && e.message == ErrSessionExpired.Error() {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// KindOf returns the kind of the outermost ClientError in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce ClientError
	if As(err, &ce) {
		return ce.Kind()
	}
	return KindUnknown
}

// IsAuthRejected reports whether err means the session must be dropped.
func IsAuthRejected(err error) bool {
	return Is(err, ErrAuthRejected)
}

// IsRetryable returns true if the user may retry the same action manually.
// Remote and transport failures are retryable; everything else needs a
// different input or a new login.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce ClientError
	if As(err, &ce) {
		return ce.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var ce ClientError
	if As(err, &ce) {
		return ce.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ClientError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var ce ClientError
	if As(err, &ce) {
		return ce.Severity()
	}
	return SeverityError
}

// UserMessage renders err as the line shown in the status bar.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if Is(err, ErrSessionExpired) {
		return "Session expired, please log in again."
	}

	var input *InputError
	if As(err, &input) {
		if input.Field == "" {
			return "Input cannot be empty!"
		}
		return fmt.Sprintf("%s cannot be empty!", capitalize(input.Field))
	}

	var apiErr *APIError
	if As(err, &apiErr) {
		switch apiErr.Kind() {
		case KindAuth:
			if apiErr.Op == "login" {
				return "Invalid email or password."
			}
			return "Session expired, please log in again."
		case KindTwoFactor:
			return "Two-factor authentication required."
		case KindRemote:
			if apiErr.Message != "" {
				return apiErr.Message
			}
			return "Unknown error"
		case KindTransport:
			return "Could not reach the server. Check your connection and try again."
		}
	}

	switch KindOf(err) {
	case KindNoChannelSelected:
		return "No channel selected!"
	case KindInvalidSelection:
		return "That item is no longer available. Refresh and try again."
	case KindNotAuthenticated:
		return "You are not logged in."
	}
	if Is(err, ErrLoginInProgress) {
		return "Login already in progress."
	}
	return "Something went wrong."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike a bare message, this preserves the ClientError chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
