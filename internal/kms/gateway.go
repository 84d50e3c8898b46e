package kms

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
)

// Ciphertext is an encrypted value together with the key that produced it.
type Ciphertext struct {
	Value string // base64 encoded
	KeyID string
}

// Gateway encrypts and decrypts opaque secrets through a key service.
type Gateway interface {
	Encrypt(ctx context.Context, plaintext string) (Ciphertext, error)
	Decrypt(ctx context.Context, ciphertext Ciphertext) (string, error)
}

func encryptionError(message string, cause error) error {
	return apperr.Wrap(apperr.KindEncryptionFailure, message, cause)
}

func decodeCiphertext(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, encryptionError("empty ciphertext", nil)
	}
	blob, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, encryptionError("malformed ciphertext", err)
	}
	return blob, nil
}
