// Package errors provides the categorized error type used across the service.
// Handlers map categories to HTTP status codes; the ingestion pipeline uses them
// to tell per-feature skips apart from fatal reload failures.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
)

// ErrorCategory groups errors by how callers should react to them.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not-found"
	CategoryIngestRow  ErrorCategory = "ingest-row"
	CategoryIngestTx   ErrorCategory = "ingest-transaction"
	CategoryDatabase   ErrorCategory = "database"
	CategoryFileIO     ErrorCategory = "file-io"
	CategoryNetwork    ErrorCategory = "network"
	CategoryConfig     ErrorCategory = "configuration"
	CategoryGeneric    ErrorCategory = "generic"
)

// EnhancedError wraps an error with a category and optional context.
type EnhancedError struct {
	Err      error
	Category ErrorCategory
	Context  map[string]any
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, otherwise defers to the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetContext returns a copy of the context map.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// ErrorBuilder builds an EnhancedError step by step.
type ErrorBuilder struct {
	err      error
	category ErrorCategory
	context  map[string]any
}

// New starts a builder around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err, category: CategoryGeneric}
}

// Newf starts a builder around a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

func (eb *ErrorBuilder) Build() *EnhancedError {
	return &EnhancedError{
		Err:      eb.err,
		Category: eb.category,
		Context:  eb.context,
	}
}

// ValidationError reports bad caller input.
func ValidationError(format string, args ...any) *EnhancedError {
	return Newf(format, args...).Category(CategoryValidation).Build()
}

// NotFound reports a missing row.
func NotFound(entity string, id any) *EnhancedError {
	return Newf("%s %v not found", entity, id).
		Category(CategoryNotFound).
		Context("entity", entity).
		Context("id", id).
		Build()
}

// Database wraps a storage failure for the given operation.
func Database(op string, err error) *EnhancedError {
	return New(fmt.Errorf("%s: %w", op, err)).
		Category(CategoryDatabase).
		Context("operation", op).
		Build()
}

// CategoryOf returns the category of the first EnhancedError in err's chain,
// or CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.Category
	}
	return CategoryGeneric
}

func IsCategory(err error, category ErrorCategory) bool {
	return err != nil && CategoryOf(err) == category
}

func IsValidation(err error) bool { return IsCategory(err, CategoryValidation) }

func IsNotFound(err error) bool { return IsCategory(err, CategoryNotFound) }

// Standard library passthroughs so callers need only one errors import.

func NewStd(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }
