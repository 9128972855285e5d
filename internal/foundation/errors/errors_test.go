package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryValidation, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("attribute", "@load").
			Build()

		assert.Equal(t, CategoryValidation, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())
		assert.Equal(t, "[validation] invalid configuration", err.Error())

		attr, exists := err.Context().GetString("attribute")
		require.True(t, exists)
		assert.Equal(t, "@load", attr)
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		inner := NotLoaded("Load a system before generating a render.").Build()
		wrapped := fmt.Errorf("get diagram: %w", inner)

		assert.True(t, IsClassified(wrapped))
		assert.True(t, HasCategory(wrapped, CategoryNotLoaded))
		assert.Equal(t, CategoryNotLoaded, GetCategory(wrapped))
		assert.False(t, inner.CanRetry())
	})

	t.Run("Classify wraps plain errors as internal", func(t *testing.T) {
		plain := errors.New("boom")
		classified := Classify(plain)

		require.NotNil(t, classified)
		assert.Equal(t, CategoryInternal, classified.Category())
		assert.Equal(t, "Something went wrong, please try again.", classified.Message())
		assert.ErrorIs(t, classified, plain)
		assert.Nil(t, Classify(nil))
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := IOError("write failed").Build()
		extended := base.WithContext("path", "/tmp/out.svg")

		_, exists := base.Context().Get("path")
		assert.False(t, exists)
		path, _ := extended.Context().GetString("path")
		assert.Equal(t, "/tmp/out.svg", path)
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("permission denied")
		err := WrapError(originalErr, CategoryIO, "failed to write export").
			Warning().
			WithRetry(RetryBackoff).
			WithContext("path", "/tmp/out.png").
			Build()

		assert.Equal(t, CategoryIO, err.Category())
		assert.Equal(t, SeverityWarning, err.Severity())
		assert.Equal(t, RetryBackoff, err.RetryStrategy())
		assert.True(t, err.CanRetry())
		assert.ErrorIs(t, err, originalErr)
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"LockContention", LockContention("test"), CategoryLockContention, SeverityWarning, RetryImmediate},
			{"NotLoaded", NotLoaded("test"), CategoryNotLoaded, SeverityError, RetryUserAction},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityError, RetryNever},
			{"SerializationError", SerializationError("test"), CategorySerialization, SeverityError, RetryNever},
			{"IOError", IOError("test"), CategoryIO, SeverityError, RetryBackoff},
			{"ExternalToolUnavailable", ExternalToolUnavailable("test"), CategoryExternalTool, SeverityError, RetryUserAction},
			{"RasterError", RasterError("test"), CategoryRaster, SeverityError, RetryNever},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				assert.Equal(t, tt.category, err.Category())
				assert.Equal(t, tt.severity, err.Severity())
				assert.Equal(t, tt.retry, err.RetryStrategy())
			})
		}
	})
}

func TestErrorContext(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", 42).Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	v1, _ := merged.GetString("key1")
	v2, _ := merged.Get("key2")
	shared, _ := merged.GetString("shared")
	assert.Equal(t, "value1", v1)
	assert.Equal(t, 42, v2)
	assert.Equal(t, "overridden", shared)

	_, ok := merged.GetString("key2")
	assert.False(t, ok)

	var nilCtx ErrorContext
	_, ok = nilCtx.Get("x")
	assert.False(t, ok)
}
