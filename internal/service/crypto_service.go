package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// AESCryptoService implements ports.CryptoService. Card numbers are
// encrypted with AES-256-GCM for authorized display and digested with
// peppered SHA-256 for uniqueness lookup. The service owns its key material
// for its lifetime and exposes no mutator.
type AESCryptoService struct {
	key    []byte // 32-byte key for AES-256
	pepper []byte
}

// NewAESCryptoService creates the crypto service. hexKey must be a
// 64-character hex string (32 bytes decoded); pepper must be non-empty.
// Missing key material fails construction, so the process cannot start
// without it.
func NewAESCryptoService(hexKey, pepper string) (*AESCryptoService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding AES key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}
	if pepper == "" {
		return nil, fmt.Errorf("hash pepper must not be empty")
	}
	return &AESCryptoService{key: key, pepper: []byte(pepper)}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM.
// Returns hex-encoded string: nonce + ciphertext.
func (s *AESCryptoService) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a hex-encoded AES-256-GCM ciphertext. Fails if the
// ciphertext was not produced by this service or the key has changed.
func (s *AESCryptoService) Decrypt(ciphertextHex string) (string, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	return string(plaintext), nil
}

// Hash returns the hex SHA-256 digest of plaintext mixed with the pepper.
// Deterministic so the store can enforce uniqueness through an index
// without decrypting on the hot path.
func (s *AESCryptoService) Hash(plaintext string) string {
	sum := sha256.Sum256(append([]byte(plaintext), s.pepper...))
	return hex.EncodeToString(sum[:])
}
