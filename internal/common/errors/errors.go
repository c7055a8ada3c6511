// Package errors provides standardized error handling for the expert pipeline.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeEmptyQuestion       ErrorCode = "EMPTY_QUESTION"
	ErrCodeDecompositionFailed ErrorCode = "DECOMPOSITION_FAILED"
	ErrCodeRoutingFailed       ErrorCode = "ROUTING_FAILED"

	ErrCodeSchemaNotFound    ErrorCode = "SCHEMA_NOT_FOUND"
	ErrCodeSchemaInvalid     ErrorCode = "SCHEMA_INVALID"
	ErrCodeTranslationFailed ErrorCode = "TRANSLATION_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeCorpusSearchFailed ErrorCode = "CORPUS_SEARCH_FAILED"
	ErrCodeCorpusTimeout      ErrorCode = "CORPUS_TIMEOUT"

	ErrCodeCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"
	ErrCodeCapabilityTimeout     ErrorCode = "CAPABILITY_TIMEOUT"
	ErrCodeCompositionFailed     ErrorCode = "COMPOSITION_FAILED"

	ErrCodeAllSourcesFailed ErrorCode = "ALL_SOURCES_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewSchemaNotFoundError marks a missing schema metadata document. Downstream
// translation treats it as "cannot translate", never as a run abort.
func NewSchemaNotFoundError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaNotFound,
		Message:   "Schema metadata document not found",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaInvalidError marks a schema document that failed validation.
func NewSchemaInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaInvalid,
		Message:   "Schema metadata document failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionError marks one failed query. The failure is positional: it
// never aborts sibling queries.
func NewQueryExecutionError(query, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Query execution failed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"query": query},
		Timestamp: time.Now().UTC(),
	}
}

// NewCorpusSearchError marks a failed advice-corpus lookup.
func NewCorpusSearchError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCorpusSearchFailed,
		Message:   "Advice corpus search failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAllSourcesFailedError is the only error that surfaces to the user, raised
// when every source of every sub-question degraded simultaneously.
func NewAllSourcesFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAllSourcesFailed,
		Message:   "No data source could contribute to an answer",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Degradation Policy
// ==========================

// Degradation describes how a stage failure is absorbed at the stage boundary:
// every failure degrades locally, only ALL_SOURCES_FAILED may surface.
type Degradation string

const (
	// DegradeToOriginal keeps the undecomposed question as the only sub-question.
	DegradeToOriginal Degradation = "keep_original_question"
	// DegradeToAdviceOnly drops structured grounding for the affected item and
	// answers from advice/general knowledge.
	DegradeToAdviceOnly Degradation = "advice_only"
	// DegradeToMarker records a positional failure marker and continues.
	DegradeToMarker Degradation = "failure_marker"
	// SurfaceToUser ends the run with the user-visible unable-to-answer text.
	SurfaceToUser Degradation = "surface"
)

// DegradationFor maps an error code to the pipeline's recovery behavior.
func DegradationFor(code ErrorCode) Degradation {
	switch code {
	case ErrCodeDecompositionFailed:
		return DegradeToOriginal
	case ErrCodeRoutingFailed, ErrCodeSchemaNotFound, ErrCodeSchemaInvalid,
		ErrCodeTranslationFailed, ErrCodeCapabilityUnavailable, ErrCodeCapabilityTimeout:
		return DegradeToAdviceOnly
	case ErrCodeQueryExecutionFailed, ErrCodeQueryTimeout,
		ErrCodeCorpusSearchFailed, ErrCodeCorpusTimeout:
		return DegradeToMarker
	case ErrCodeAllSourcesFailed:
		return SurfaceToUser
	}
	return DegradeToMarker
}

