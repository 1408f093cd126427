package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueai-org/ultrakv/internal/codec"
)

func Test_Pipeline_RoundTrips_AcrossEveryCompressionKind(t *testing.T) {
	t.Parallel()

	kinds := []codec.CompressionKind{
		codec.CompressionNone,
		codec.CompressionGzip,
		codec.CompressionDeflate,
		codec.CompressionBrotli,
		codec.CompressionLZ4,
		codec.CompressionZstd,
		codec.CompressionSnappy,
		codec.CompressionLZMA,
	}

	original := []byte("the quick brown fox jumps over the lazy dog, repeated for compressibility: " +
		"the quick brown fox jumps over the lazy dog")

	for _, kind := range kinds {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			p, err := codec.New(kind, codec.EncryptionNone, nil)
			require.NoError(t, err)

			encoded, err := p.Encode(original)
			require.NoError(t, err)

			decoded, err := p.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, original, decoded)
		})
	}
}

func Test_Pipeline_RoundTrips_WithEncryption(t *testing.T) {
	t.Parallel()

	key := []byte("0123456789abcdef")
	p, err := codec.New(codec.CompressionZstd, codec.EncryptionAES256GCM, key)
	require.NoError(t, err)

	original := []byte("super secret value")
	encoded, err := p.Encode(original)
	require.NoError(t, err)
	require.NotEqual(t, original, encoded)

	decoded, err := p.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func Test_NewEncryptor_RejectsShortKeys(t *testing.T) {
	t.Parallel()

	_, err := codec.NewEncryptor(codec.EncryptionAES256GCM, []byte("short"))
	assert.Error(t, err)
}

func Test_Decrypt_FailsOnTamperedCiphertext(t *testing.T) {
	t.Parallel()

	enc, err := codec.NewEncryptor(codec.EncryptionAES256GCM, []byte("0123456789abcdef"))
	require.NoError(t, err)

	sealed, err := enc.Encrypt([]byte("hello"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF // flip a tag byte

	_, err = enc.Decrypt(sealed)
	assert.Error(t, err)
}

func Test_Pipeline_Active_ReflectsConfiguredKinds(t *testing.T) {
	t.Parallel()

	plain, err := codec.New(codec.CompressionNone, codec.EncryptionNone, nil)
	require.NoError(t, err)
	assert.False(t, plain.Active())

	withCompression, err := codec.New(codec.CompressionGzip, codec.EncryptionNone, nil)
	require.NoError(t, err)
	assert.True(t, withCompression.Active())
}

func Test_CompressionKind_Valid(t *testing.T) {
	t.Parallel()
	assert.True(t, codec.CompressionLZMA.Valid())
	assert.False(t, codec.CompressionKind(99).Valid())
}
