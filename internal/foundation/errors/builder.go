package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

// WithCause sets the underlying error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithRetry sets the retry strategy.
func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for the manyvis taxonomy

// LockContention creates an error for a busy or abandoned resource acquisition.
func LockContention(message string) *ErrorBuilder {
	return NewError(CategoryLockContention, message).Warning().WithRetry(RetryImmediate)
}

// NotLoaded creates an error for operations that need a prior parse.
func NotLoaded(message string) *ErrorBuilder {
	return NewError(CategoryNotLoaded, message).WithRetry(RetryUserAction)
}

// ValidationError creates an error for rejected input.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message)
}

// SerializationError creates an error for failed text or XML generation.
func SerializationError(message string) *ErrorBuilder {
	return NewError(CategorySerialization, message)
}

// IOError creates a filesystem error (typically retryable).
func IOError(message string) *ErrorBuilder {
	return NewError(CategoryIO, message).WithRetry(RetryBackoff)
}

// ExternalToolUnavailable creates an error for a missing external program.
func ExternalToolUnavailable(message string) *ErrorBuilder {
	return NewError(CategoryExternalTool, message).WithRetry(RetryUserAction)
}

// RasterError creates an error for a failed pixel rendering.
func RasterError(message string) *ErrorBuilder {
	return NewError(CategoryRaster, message)
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
