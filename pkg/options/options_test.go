package options_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueai-org/ultrakv/internal/codec"
	"github.com/trueai-org/ultrakv/pkg/options"
)

func Test_New_AppliesDefaultsThenOverrides(t *testing.T) {
	t.Parallel()

	o := options.New(options.WithPath("/tmp/custom.ukv"))
	assert.Equal(t, "/tmp/custom.ukv", o.Path)
	assert.Equal(t, options.DefaultMaxKeyLength, o.MaxKeyLength)
}

func Test_WithPath_IgnoresBlankPath(t *testing.T) {
	t.Parallel()

	o := options.New(options.WithPath("   "))
	assert.Equal(t, options.DefaultPath, o.Path)
}

func Test_WithIndexPageSizeKB_RejectsBelowMinimum(t *testing.T) {
	t.Parallel()

	o := options.New(options.WithIndexPageSizeKB(0))
	assert.Equal(t, options.DefaultIndexPageSizeKB, o.DefaultIndexPageSizeKB)
}

func Test_WithBufferSizesKB_RejectsBelowMinimum(t *testing.T) {
	t.Parallel()

	o := options.New(options.WithBufferSizesKB(1, 1))
	assert.Equal(t, options.DefaultBufferSizeKB, o.WriteBufferSizeKB)
	assert.Equal(t, options.DefaultBufferSizeKB, o.ReadBufferSizeKB)
}

func Test_Validate_RejectsEmptyPath(t *testing.T) {
	t.Parallel()

	o := options.New(options.WithPath(""))
	o.Path = ""
	assert.Error(t, o.Validate())
}

func Test_Validate_RejectsShortEncryptionKey(t *testing.T) {
	t.Parallel()

	o := options.New(options.WithPath("/tmp/x.ukv"),
		options.WithCodec(codec.CompressionNone, codec.EncryptionAES256GCM, []byte("short")))
	assert.Error(t, o.Validate())
}

func Test_Validate_AcceptsValidEncryptionKey(t *testing.T) {
	t.Parallel()

	o := options.New(options.WithPath("/tmp/x.ukv"),
		options.WithCodec(codec.CompressionNone, codec.EncryptionAES256GCM, []byte("0123456789abcdef")))
	require.NoError(t, o.Validate())
}

func Test_Validate_RejectsNegativeFreeSpaceRegionSize(t *testing.T) {
	t.Parallel()

	o := options.New(options.WithPath("/tmp/x.ukv"))
	o.FreeSpaceRegionSizeKB = -1
	assert.Error(t, o.Validate())
}

func Test_Validate_PassesOnDefaults(t *testing.T) {
	t.Parallel()

	o := options.New(options.WithPath("/tmp/x.ukv"))
	assert.NoError(t, o.Validate())
}
