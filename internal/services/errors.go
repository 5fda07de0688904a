package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindInput      ErrorKind = "input"
	KindAuth       ErrorKind = "auth"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindUpstream   ErrorKind = "upstream"
	KindValidation ErrorKind = "validation"
	KindInternal   ErrorKind = "internal"
)

const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeAlreadyTracking     = "ALREADY_TRACKING"
	CodeNotFound            = "NOT_FOUND"
	CodeProfileNotFound     = "PROFILE_NOT_FOUND"
	CodeUnreachableURL      = "UNREACHABLE_URL"
	CodeLLMUnavailable      = "LLM_UNAVAILABLE"
	CodeInsufficientContent = "INSUFFICIENT_CONTENT"
	CodeNotAJobPosting      = "NOT_A_JOB_POSTING"
	CodeNotAResume          = "NOT_A_RESUME"
	CodeMalformedAnalysis   = "MALFORMED_ANALYSIS"
	CodeProfileTooSparse    = "PROFILE_TOO_SPARSE"
	CodeInternal            = "INTERNAL"
)

// AppError is the typed error every service returns; the HTTP layer maps Kind
// to a status code and shows Message to the caller.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so callers can compare against the sentinels below.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrAlreadyTracking     = &AppError{Kind: KindConflict, Code: CodeAlreadyTracking}
	ErrNotFound            = &AppError{Kind: KindNotFound, Code: CodeNotFound}
	ErrProfileNotFound     = &AppError{Kind: KindNotFound, Code: CodeProfileNotFound}
	ErrUnreachableURL      = &AppError{Kind: KindUpstream, Code: CodeUnreachableURL}
	ErrLLMUnavailable      = &AppError{Kind: KindUpstream, Code: CodeLLMUnavailable}
	ErrInsufficientContent = &AppError{Kind: KindValidation, Code: CodeInsufficientContent}
	ErrNotAJobPosting      = &AppError{Kind: KindValidation, Code: CodeNotAJobPosting}
	ErrNotAResume          = &AppError{Kind: KindValidation, Code: CodeNotAResume}
	ErrMalformedAnalysis   = &AppError{Kind: KindValidation, Code: CodeMalformedAnalysis}
	ErrProfileTooSparse    = &AppError{Kind: KindValidation, Code: CodeProfileTooSparse}
)

func NewInputError(message string) *AppError {
	return &AppError{Kind: KindInput, Code: CodeInvalidInput, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{Kind: KindInternal, Code: CodeInternal, Message: message, Cause: cause}
}

func alreadyTracking() *AppError {
	return &AppError{Kind: KindConflict, Code: CodeAlreadyTracking, Message: "You are already tracking this job."}
}

func profileNotFound() *AppError {
	return &AppError{Kind: KindNotFound, Code: CodeProfileNotFound, Message: "Profile not found. Please complete your profile first."}
}

func profileTooSparse(filled int) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    CodeProfileTooSparse,
		Message: fmt.Sprintf("Your profile is too sparse for analysis (%d of at least 2 fields filled). Add more career preferences and try again.", filled),
	}
}

func unreachableURL(cause error) *AppError {
	return &AppError{Kind: KindUpstream, Code: CodeUnreachableURL, Message: "Could not retrieve the job posting from that URL.", Cause: cause}
}

func insufficientContent(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeInsufficientContent, Message: message}
}

func notAJobPosting() *AppError {
	return &AppError{Kind: KindValidation, Code: CodeNotAJobPosting, Message: "The content at this URL does not appear to be a job posting."}
}

func notAResume() *AppError {
	return &AppError{Kind: KindValidation, Code: CodeNotAResume, Message: "The submitted text does not appear to be a resume."}
}

func malformedAnalysis(cause error) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeMalformedAnalysis, Message: "The AI analysis could not be understood. Please try again.", Cause: cause}
}

func llmUnavailable(cause error) *AppError {
	return &AppError{Kind: KindUpstream, Code: CodeLLMUnavailable, Message: "The AI service is temporarily unavailable. Please try again later.", Cause: cause}
}

// isUniqueViolation recognises duplicate-key failures from either the
// translated gorm error or a raw Postgres error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
