package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents network or timeout errors while fetching a page
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypePayloadNotFound means the page did not contain the embedded data block
	ErrorTypePayloadNotFound ErrorType = "payload_not_found"
	// ErrorTypeCacheNotFound means the payload did not contain a parsable client cache
	ErrorTypeCacheNotFound ErrorType = "cache_not_found"
	// ErrorTypePersistence represents durable-store errors; these abort the run
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError represents a pipeline-specific error
type PipelineError struct {
	Type    ErrorType
	URL     string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.URL, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error must abort the run. Only persistence
// failures are fatal: continuing to scrape without the ability to durably
// record results wastes the fetch budget.
func (e *PipelineError) IsFatal() bool {
	return e.Type == ErrorTypePersistence
}

// New creates a new PipelineError
func New(errType ErrorType, url, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		URL:     url,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(url, message string, err error) *PipelineError {
	return New(ErrorTypeFetch, url, message, err)
}

// NewPayloadNotFound creates a new payload-not-found error
func NewPayloadNotFound(url, message string) *PipelineError {
	return New(ErrorTypePayloadNotFound, url, message, nil)
}

// NewCacheNotFound creates a new cache-not-found error
func NewCacheNotFound(url, message string, err error) *PipelineError {
	return New(ErrorTypeCacheNotFound, url, message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(zpid, message string, err error) *PipelineError {
	return New(ErrorTypePersistence, zpid, message, err)
}

// NewValidation creates a new validation error
func NewValidation(url, message string) *PipelineError {
	return New(ErrorTypeValidation, url, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of err, or the empty string when err is not
// a PipelineError.
func TypeOf(err error) ErrorType {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ""
}

// IsFatal reports whether err carries a fatal PipelineError.
func IsFatal(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.IsFatal()
	}
	return false
}
