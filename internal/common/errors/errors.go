package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	// Onboarding state machine
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeValidationFailed    ErrorCode = "ONBOARDING_VALIDATION_FAILED"
	ErrCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeApplicantNotFound   ErrorCode = "APPLICANT_NOT_FOUND"

	// External identity sync
	ErrCodeRemoteAPIError      ErrorCode = "REMOTE_API_ERROR"
	ErrCodeRemoteAPITimeout    ErrorCode = "REMOTE_API_TIMEOUT"
	ErrCodeUnknownRemoteStatus ErrorCode = "UNKNOWN_REMOTE_STATUS"
	ErrCodeIdentityNotFound    ErrorCode = "IDENTIFICATION_NOT_FOUND"

	// Infrastructure
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDispatchFailed           ErrorCode = "DISPATCH_FAILED"
	ErrCodePayloadInvalid           ErrorCode = "PAYLOAD_INVALID"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeAuditIndexFailed         ErrorCode = "AUDIT_INDEX_FAILED"
)

// StandardError is the error shape returned by every package in the module.
// Metadata carries structured detail such as the violated guard items.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// Violations returns the itemized guard failures of a validation error.
func (e *StandardError) Violations() []string {
	if e.Metadata == nil {
		return nil
	}
	v, _ := e.Metadata["violations"].([]string)
	return v
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// NewInvalidTransitionError reports a target reached from a disallowed status.
// expected is empty when no handler exists for the target.
func NewInvalidTransitionError(target, actual string, expected []string) *StandardError {
	details := fmt.Sprintf("target: %s, actual: %s", target, actual)
	if len(expected) > 0 {
		details = fmt.Sprintf("%s, expected one of: %s", details, strings.Join(expected, ","))
	}
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   fmt.Sprintf("Cannot change status to %s", target),
		Details:   details,
		Retryable: false,
		Metadata: map[string]interface{}{
			"target":   target,
			"actual":   actual,
			"expected": expected,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError lists every failed guard item, never only the first.
func NewValidationError(message string, violations ...string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Details:   strings.Join(violations, ", "),
		Retryable: false,
		Metadata:  map[string]interface{}{"violations": violations},
		Timestamp: time.Now().UTC(),
	}
}

func NewConcurrencyConflictError(applicantID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrencyConflict,
		Message:   "Applicant record is locked by another operation",
		Details:   fmt.Sprintf("applicantId: %s, error: %v", applicantID, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"applicantId": applicantID},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewApplicantNotFoundError(applicantID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicantNotFound,
		Message:   "Applicant not found",
		Details:   fmt.Sprintf("applicantId: %s", applicantID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteAPIError wraps a failed or non-2xx call to the banking core or the
// document verifier. status is 0 for transport failures.
func NewRemoteAPIError(operation string, status int, body string, err error) *StandardError {
	details := fmt.Sprintf("operation: %s, status: %d", operation, status)
	if body != "" {
		details = fmt.Sprintf("%s, body: %s", details, truncate(body, 512))
	}
	if err != nil {
		details = fmt.Sprintf("%s, error: %v", details, err)
	}
	return &StandardError{
		Code:      ErrCodeRemoteAPIError,
		Message:   fmt.Sprintf("Remote call %s failed", operation),
		Details:   details,
		Retryable: status == 0 || status >= 500 || status == 429,
		Metadata: map[string]interface{}{
			"operation":  operation,
			"statusCode": status,
		},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewRemoteAPITimeoutError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteAPITimeout,
		Message:   fmt.Sprintf("Remote call %s timed out", operation),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewUnknownRemoteStatusError(vendorStatus string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownRemoteStatus,
		Message:   "Remote verification status is not recognised",
		Details:   fmt.Sprintf("status: %q", vendorStatus),
		Retryable: false,
		Metadata:  map[string]interface{}{"vendorStatus": vendorStatus},
		Timestamp: time.Now().UTC(),
	}
}

func NewIdentificationNotFoundError(applicantID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIdentityNotFound,
		Message:   "Applicant has no usable identification document",
		Details:   fmt.Sprintf("applicantId: %s", applicantID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewQueryTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDispatchFailedError(handler string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   "Task could not be dispatched",
		Details:   fmt.Sprintf("handler: %s, error: %v", handler, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"handler": handler},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewPayloadInvalidError(handler string, violations []string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadInvalid,
		Message:   "Task payload failed schema validation",
		Details:   fmt.Sprintf("handler: %s, errors: %s", handler, strings.Join(violations, "; ")),
		Retryable: false,
		Metadata:  map[string]interface{}{"handler": handler, "violations": violations},
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewAuditIndexFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditIndexFailed,
		Message:   "Audit event could not be indexed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// AsStandard unwraps err to a *StandardError if one is in the chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// CodeOf returns the code of err or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// IsRetryable reports whether err should be redelivered by the carrier.
func IsRetryable(err error) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Retryable
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidTransition:        "INVALID_TRANSITION",
	ErrCodeValidationFailed:         "ONBOARDING_VALIDATION_FAILED",
	ErrCodeConcurrencyConflict:      "CONCURRENCY_CONFLICT",
	ErrCodeApplicantNotFound:        "APPLICANT_NOT_FOUND",
	ErrCodeRemoteAPIError:           "REMOTE_API_ERROR",
	ErrCodeRemoteAPITimeout:         "REMOTE_API_TIMEOUT",
	ErrCodeUnknownRemoteStatus:      "UNKNOWN_REMOTE_STATUS",
	ErrCodeIdentityNotFound:         "IDENTIFICATION_NOT_FOUND",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeDispatchFailed:           "DISPATCH_FAILED",
	ErrCodePayloadInvalid:           "PAYLOAD_INVALID",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeAuditIndexFailed:         "AUDIT_INDEX_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRemoteAPIError,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDispatchFailed,
		ErrCodeAuditIndexFailed:
		return 3

	case ErrCodeConcurrencyConflict,
		ErrCodeRemoteAPITimeout,
		ErrCodeQueryTimeout,
		ErrCodeNotificationSendFailed:
		return 2

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if v := stdErr.Violations(); len(v) > 0 {
		vars["violations"] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "CONCURRENCY"):
		return "STATE"
	case strings.Contains(codeStr, "REMOTE") || strings.Contains(codeStr, "IDENTIFICATION"):
		return "EXTERNAL_IDENTITY"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "DISPATCH") || strings.Contains(codeStr, "AUDIT"):
		return "INFRASTRUCTURE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
