package errors_test

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trueai-org/ultrakv/pkg/errors"
)

func Test_ValidationError_FluentBuildersSetFields(t *testing.T) {
	t.Parallel()

	err := errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "bad input").
		WithField("path").WithRule("required").WithProvided("").WithExpected("non-empty")

	assert.Equal(t, "path", err.Field())
	assert.Equal(t, "required", err.Rule())
	assert.Equal(t, "", err.Provided())
	assert.Equal(t, "non-empty", err.Expected())
	assert.Equal(t, errors.ErrorCodeInvalidInput, err.Code())
}

func Test_ValidationError_UnwrapReachesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("disk full")
	err := errors.NewValidationError(cause, errors.ErrorCodeInvalidInput, "wrapped")

	assert.True(t, stdErrors.Is(err, cause))
}

func Test_StorageError_WithPathAndDetail(t *testing.T) {
	t.Parallel()

	err := errors.NewStorageError(nil, errors.ErrorCodeIO, "write failed").
		WithPath("/data/db.ukv").WithDetail("attempt", 3)

	assert.Contains(t, err.Error(), "write failed")
	assert.Equal(t, 3, err.Details()["attempt"])
}

func Test_NewFieldRangeError_RecordsMinMax(t *testing.T) {
	t.Parallel()

	err := errors.NewFieldRangeError("encryptionKey", 5, 16, 0)

	assert.Equal(t, "encryptionKey", err.Field())
	assert.Equal(t, 16, err.Details()["minValue"])
}
