// Package errors provides structured error handling for taleweave.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Validation errors
	CodeNarrativeEmpty      Code = "NARRATIVE_EMPTY"
	CodeChoicesEmpty        Code = "CHOICES_EMPTY"
	CodeChoiceBlank         Code = "CHOICE_BLANK"
	CodeChoiceIndexNegative Code = "CHOICE_INDEX_NEGATIVE"

	// State errors
	CodeNoNarrative      Code = "NO_NARRATIVE"
	CodeNoPendingChoices Code = "NO_PENDING_CHOICES"

	// Path resolver errors
	CodePathEmpty        Code = "PATH_EMPTY"
	CodePathMalformed    Code = "PATH_MALFORMED"
	CodePathBadIndex     Code = "PATH_BAD_INDEX"
	CodePathNotIndexable Code = "PATH_NOT_INDEXABLE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeNarrativeEmpty,
		CodeChoicesEmpty,
		CodeChoiceBlank,
		CodeChoiceIndexNegative,
		CodePathEmpty,
		CodePathMalformed,
		CodePathBadIndex,
		CodePathNotIndexable:
		return codes.InvalidArgument

	// FailedPrecondition - session state doesn't allow the operation
	case CodeNoNarrative,
		CodeNoPendingChoices:
		return codes.FailedPrecondition

	// NotFound - session doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
