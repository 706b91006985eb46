package contentgraph

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

type ErrorCode string

const (
	ErrCodeInvalidReference ErrorCode = "invalid_reference"
	ErrCodeDuplicateContent ErrorCode = "duplicate_content"
	ErrCodeMultipleParents  ErrorCode = "multiple_parents"
	ErrCodeCycle            ErrorCode = "cycle"
	ErrCodeFamilyTooDeep    ErrorCode = "family_too_deep"
)

// GraphError is a recoverable graph-integrity violation. Every rejected edge
// mutation reports one of these; none of them should crash anything.
type GraphError struct {
	Code     ErrorCode
	Message  string
	SourceID string
	TargetID string
}

func (e *GraphError) Error() string {
	if e.SourceID != "" || e.TargetID != "" {
		return fmt.Sprintf("%s: %s (source=%s, target=%s)", e.Code, e.Message, e.SourceID, e.TargetID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewInvalidReferenceError(sourceID, targetID, msg string) *GraphError {
	return &GraphError{Code: ErrCodeInvalidReference, Message: msg, SourceID: sourceID, TargetID: targetID}
}

func NewDuplicateContentError(platform, externalID string) *GraphError {
	return &GraphError{
		Code:    ErrCodeDuplicateContent,
		Message: fmt.Sprintf("content for platform '%s' with external id '%s' already exists", platform, externalID),
	}
}

func NewMultipleParentsError(sourceID, targetID string) *GraphError {
	return &GraphError{
		Code:     ErrCodeMultipleParents,
		Message:  "target already has a parent",
		SourceID: sourceID,
		TargetID: targetID,
	}
}

func NewCycleError(sourceID, targetID string) *GraphError {
	return &GraphError{
		Code:     ErrCodeCycle,
		Message:  "edge would create a cycle",
		SourceID: sourceID,
		TargetID: targetID,
	}
}

func NewFamilyTooDeepError(rootID string, maxDepth int) *GraphError {
	return &GraphError{
		Code:     ErrCodeFamilyTooDeep,
		Message:  fmt.Sprintf("family exceeds maximum depth %d", maxDepth),
		SourceID: rootID,
	}
}

// IsGraphError reports whether err is (or wraps) a GraphError
func IsGraphError(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge)
}

// HasCode reports whether err is a GraphError with the given code
func HasCode(err error, code ErrorCode) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

var statusByCode = map[ErrorCode]int{
	ErrCodeInvalidReference: http.StatusUnprocessableEntity,
	ErrCodeDuplicateContent: http.StatusConflict,
	ErrCodeMultipleParents:  http.StatusConflict,
	ErrCodeCycle:            http.StatusConflict,
	ErrCodeFamilyTooDeep:    http.StatusUnprocessableEntity,
}

// ToHTTPError maps the violation to an httperror for the API boundary
func (e *GraphError) ToHTTPError() *httperror.HTTPError {
	status, ok := statusByCode[e.Code]
	if !ok {
		status = http.StatusBadRequest
	}
	return httperror.NewHTTPError(status, e.Message).
		AddMetaValue("code", string(e.Code)).
		AddMetaValue("source_id", e.SourceID).
		AddMetaValue("target_id", e.TargetID)
}
