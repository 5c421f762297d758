package schema

import (
	"errors"
	"fmt"
)

// ErrInvalidSchema is matched by every *SchemaError.
var ErrInvalidSchema = errors.New("invalid schema")

// IssueCode classifies a schema problem.
type IssueCode string

const (
	IssueEmptyID            IssueCode = "empty_id"
	IssueDuplicateID        IssueCode = "duplicate_id"
	IssueDuplicateOrder     IssueCode = "duplicate_order"
	IssueUnknownType        IssueCode = "unknown_type"
	IssueUnknownAudience    IssueCode = "unknown_audience"
	IssueMissingOptions     IssueCode = "missing_options"
	IssueInvalidOption      IssueCode = "invalid_option"
	IssueInvalidRule        IssueCode = "invalid_rule"
	IssueDanglingReference  IssueCode = "dangling_reference"
	IssueInvalidCondition   IssueCode = "invalid_condition"
	IssueMissingTranslation IssueCode = "missing_translation"
	IssueInvalidLanguage    IssueCode = "invalid_language"
)

// Issue is a single problem found while loading a schema.
type Issue struct {
	Code       IssueCode
	QuestionID string // empty for form-level issues
	Detail     string
}

func (i Issue) String() string {
	if i.QuestionID == "" {
		return fmt.Sprintf("%s: %s", i.Code, i.Detail)
	}
	return fmt.Sprintf("question %q: %s: %s", i.QuestionID, i.Code, i.Detail)
}

// SchemaError aggregates every issue found in a definition.
type SchemaError struct {
	Issues []Issue
}

func (e *SchemaError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid schema: " + e.Issues[0].String()
	}
	msg := fmt.Sprintf("invalid schema: %d issues:\n", len(e.Issues))
	for i, issue := range e.Issues {
		msg += fmt.Sprintf("  %d. %s\n", i+1, issue)
	}
	return msg
}

func (e *SchemaError) Is(target error) bool { return target == ErrInvalidSchema }

// Has reports whether any issue carries the given code.
func (e *SchemaError) Has(code IssueCode) bool {
	for _, i := range e.Issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

// Issues returns all issues if err is (or wraps) a *SchemaError.
// Otherwise returns nil.
func Issues(err error) []Issue {
	var se *SchemaError
	if errors.As(err, &se) {
		return se.Issues
	}
	return nil
}
