package criteria

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the four failure classes.
var (
	// ErrConfiguration is matched by every ConfigurationError. It marks
	// programmer errors such as missing table metadata or a query without
	// a from source.
	ErrConfiguration = errors.New("criteria: configuration error")

	// ErrExpression is matched by every ExpressionError.
	ErrExpression = errors.New("criteria: malformed expression")

	// ErrDataAccess is matched by every DataAccessError.
	ErrDataAccess = errors.New("criteria: data access failed")

	// ErrRowMapping is matched by every RowMappingError.
	ErrRowMapping = errors.New("criteria: row mapping failed")
)

// ConfigurationError reports missing metadata or an invalid query shape.
// It is raised at registration or build time and is never retried.
type ConfigurationError struct {
	Subject string // type, table or query element the error is about
	Message string
	Cause   error
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("criteria: configuration error")
	if e.Subject != "" {
		b.WriteString(" on ")
		b.WriteString(e.Subject)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error { return e.Cause }

// Is reports whether the target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigurationError returns a new ConfigurationError.
func NewConfigurationError(subject, message string) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Message: message}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e) || errors.Is(err, ErrConfiguration)
}

// ExpressionError reports malformed predicate arguments, for example
// a nil value passed to an equality or an empty IN list.
type ExpressionError struct {
	Op      string // predicate operator, e.g. "eq", "in", "between"
	Message string
}

// Error returns the error string.
func (e *ExpressionError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("criteria: malformed %q expression: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("criteria: malformed expression: %s", e.Message)
}

// Is reports whether the target is ErrExpression.
func (e *ExpressionError) Is(target error) bool { return target == ErrExpression }

// NewExpressionError returns a new ExpressionError for the given operator.
func NewExpressionError(op, message string) *ExpressionError {
	return &ExpressionError{Op: op, Message: message}
}

// IsExpressionError returns true if the error is an ExpressionError.
func IsExpressionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ExpressionError
	return errors.As(err, &e) || errors.Is(err, ErrExpression)
}

// DataAccessError wraps an execution failure with the context of the
// transfer unit that produced it.
type DataAccessError struct {
	Op            string // "count", "read" or "write"
	Table         string
	CorrelationID string
	Start, End    int // row range [Start, End) of the failed chunk
	Err           error
}

// Error returns the error string.
func (e *DataAccessError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "criteria: %s", e.Op)
	if e.Table != "" {
		fmt.Fprintf(&b, " %s", e.Table)
	}
	if e.End > e.Start {
		fmt.Fprintf(&b, " rows [%d, %d)", e.Start, e.End)
	}
	if e.CorrelationID != "" {
		fmt.Fprintf(&b, " (correlation_id=%s)", e.CorrelationID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *DataAccessError) Unwrap() error { return e.Err }

// Is reports whether the target is ErrDataAccess.
func (e *DataAccessError) Is(target error) bool { return target == ErrDataAccess }

// IsDataAccessError returns true if the error is a DataAccessError.
func IsDataAccessError(err error) bool {
	if err == nil {
		return false
	}
	var e *DataAccessError
	return errors.As(err, &e) || errors.Is(err, ErrDataAccess)
}

// RowMappingError reports a single field that could not be coerced into
// its destination. It is logged and never fatal to the row.
type RowMappingError struct {
	Field  string
	Column string
	Value  any
	Err    error
}

// Error returns the error string.
func (e *RowMappingError) Error() string {
	return fmt.Sprintf("criteria: mapping column %q into field %q (value %v): %v", e.Column, e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *RowMappingError) Unwrap() error { return e.Err }

// Is reports whether the target is ErrRowMapping.
func (e *RowMappingError) Is(target error) bool { return target == ErrRowMapping }

// IsRowMappingError returns true if the error is a RowMappingError.
func IsRowMappingError(err error) bool {
	if err == nil {
		return false
	}
	var e *RowMappingError
	return errors.As(err, &e) || errors.Is(err, ErrRowMapping)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "criteria: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("criteria: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
