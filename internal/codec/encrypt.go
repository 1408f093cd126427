package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	ukerrors "github.com/trueai-org/ultrakv/pkg/errors"
)

// MinEncryptionKeyLength is the minimum length, in bytes, an encryption key
// must have before NewEncryptor will accept it (§4.2: "An encryption key <
// 16 bytes MUST be rejected at config validation").
const MinEncryptionKeyLength = 16

// Encryptor is the narrow AEAD collaborator composed after compression.
// Decrypt MUST fail with an AuthFailed-coded *errors.CodecError when tag
// verification fails.
type Encryptor interface {
	Encrypt(data []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}

// noneEncryptor passes bytes through unchanged.
type noneEncryptor struct{}

func (noneEncryptor) Encrypt(data []byte) ([]byte, error) { return data, nil }
func (noneEncryptor) Decrypt(data []byte) ([]byte, error) { return data, nil }

// aesGCMEncryptor implements AES-256-GCM. The database-wide nonce strategy
// is a random 12-byte nonce generated per record and stored as a prefix to
// the ciphertext; GCM's tag is appended by Seal, so the wire shape is
// [nonce(12) | ciphertext | tag(16)].
type aesGCMEncryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor returns the Encryptor implementing kind using key as input
// key material. Keys shorter than MinEncryptionKeyLength are rejected.
// Supplied key material is stretched to the AES-256 key size via SHA-256
// (a fixed-output KDF is the simplest correct way to accept arbitrary-length
// passphrases for a fixed-size cipher key; no compression/crypto library in
// the reference corpus offers a narrower primitive for this, so stdlib is
// used here deliberately — see DESIGN.md).
func NewEncryptor(kind EncryptionKind, key []byte) (Encryptor, error) {
	switch kind {
	case EncryptionNone:
		return noneEncryptor{}, nil
	case EncryptionAES256GCM:
		if len(key) < MinEncryptionKeyLength {
			return nil, ukerrors.NewFieldRangeError("encryptionKey", len(key), MinEncryptionKeyLength, nil)
		}
		derived := sha256.Sum256(key)
		block, err := aes.NewCipher(derived[:])
		if err != nil {
			return nil, wrapEncryptConfig(err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, wrapEncryptConfig(err)
		}
		return &aesGCMEncryptor{gcm: gcm}, nil
	default:
		return nil, ukerrors.NewConfigurationValidationError("encryptionType", "unknown encryption kind")
	}
}

func (a *aesGCMEncryptor) Encrypt(data []byte) ([]byte, error) {
	nonce := make([]byte, a.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, ukerrors.NewCodecError(err, ukerrors.ErrorCodeCodecEncode, "failed to generate nonce").
			WithKind("encryption").WithAlgorithm("aes-256-gcm").WithInputSize(len(data))
	}
	sealed := a.gcm.Seal(nonce, nonce, data, nil)
	return sealed, nil
}

func (a *aesGCMEncryptor) Decrypt(data []byte) ([]byte, error) {
	nonceSize := a.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ukerrors.NewCodecError(nil, ukerrors.ErrorCodeAuthFailed, "ciphertext shorter than nonce").
			WithKind("encryption").WithAlgorithm("aes-256-gcm").WithInputSize(len(data))
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	out, err := a.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ukerrors.NewCodecError(err, ukerrors.ErrorCodeAuthFailed, "AEAD authentication failed").
			WithKind("encryption").WithAlgorithm("aes-256-gcm").WithInputSize(len(data))
	}
	return out, nil
}

func wrapEncryptConfig(err error) error {
	return ukerrors.NewCodecError(err, ukerrors.ErrorCodeCodecEncode, "failed to initialize AES-256-GCM").
		WithKind("encryption").WithAlgorithm("aes-256-gcm")
}
