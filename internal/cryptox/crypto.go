// Package cryptox seals the bearer token before it reaches the shared store,
// so a copied store file does not leak a live session. Sealing uses AES-GCM
// with a key derived from a machine-local secret.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/argon2"

	"github.com/jobrefme/jobrefme-cli/internal/common"
)

var ErrInvalidSealedData = errors.New("invalid sealed data")

// tokenSealSalt is fixed: the secret itself is random and machine-local, the
// salt only separates this derivation from other uses of the same secret.
var tokenSealSalt = []byte("jobrefme.token.v1")

// TokenSealer adapts the package to the state layer's Sealer interface.
type TokenSealer struct {
	key []byte
}

// NewTokenSealer derives the sealing key from a machine-local secret.
func NewTokenSealer(secret []byte) *TokenSealer {
	return &TokenSealer{key: DeriveSealKey(secret, tokenSealSalt)}
}

func (s *TokenSealer) Seal(plaintext []byte) ([]byte, error) {
	return Seal(plaintext, s.key)
}

func (s *TokenSealer) Open(sealed []byte) ([]byte, error) {
	return Open(sealed, s.key)
}

// DeriveSealKey derives a 32-byte AES key from a machine-local secret and salt.
func DeriveSealKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// Seal encrypts plaintext with AES-256-GCM. A fresh random nonce is generated
// per call and prepended to the ciphertext.
func Seal(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// Open decrypts data produced by Seal.
func Open(sealed []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aesgcm.NonceSize() {
		return nil, ErrInvalidSealedData
	}
	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidSealedData
	}
	return plaintext, nil
}
