package codec

import "sync"

// Pipeline composes a Compressor and an Encryptor into the single
// encode/decode collaborator the engine depends on. Composition order is
// fixed by the spec: encode compresses then encrypts; decode reverses it.
//
// Some underlying codecs (the AEAD state in particular) are not safe for
// concurrent use; Pipeline serializes access with a mutex so the engine's
// callers never need to know which concrete algorithm is active.
type Pipeline struct {
	mu          sync.Mutex
	compression CompressionKind
	encryption  EncryptionKind
	compressor  Compressor
	encryptor   Encryptor
}

// New builds a Pipeline for the given compression/encryption kinds and key
// material. The key is only consulted when encryption is not EncryptionNone.
func New(compression CompressionKind, encryption EncryptionKind, key []byte) (*Pipeline, error) {
	compressor, err := NewCompressor(compression)
	if err != nil {
		return nil, err
	}
	encryptor, err := NewEncryptor(encryption, key)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		compression: compression,
		encryption:  encryption,
		compressor:  compressor,
		encryptor:   encryptor,
	}, nil
}

// Encode runs data through compress-then-encrypt.
func (p *Pipeline) Encode(data []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	compressed, err := p.compressor.Encode(data)
	if err != nil {
		return nil, err
	}
	return p.encryptor.Encrypt(compressed)
}

// Decode runs data through decrypt-then-decompress, the reverse of Encode.
func (p *Pipeline) Decode(data []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	decrypted, err := p.encryptor.Decrypt(data)
	if err != nil {
		return nil, err
	}
	return p.compressor.Decode(decrypted)
}

// Active reports whether either compression or encryption is enabled. When
// false, the index stores raw UTF-8 keys rather than codec-encoded bytes
// (§9 Open Question 2).
func (p *Pipeline) Active() bool {
	return p.compression != CompressionNone || p.encryption != EncryptionNone
}

// CompressionKind returns the compression kind this pipeline was built with.
func (p *Pipeline) CompressionKind() CompressionKind { return p.compression }

// EncryptionKind returns the encryption kind this pipeline was built with.
func (p *Pipeline) EncryptionKind() EncryptionKind { return p.encryption }
