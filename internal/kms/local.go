package kms

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// LocalKey is a named symmetric key for the local gateway.
type LocalKey struct {
	ID     string
	Secret string
}

// LocalGateway encrypts with in-process secretbox keys. It serves sandbox and
// test deployments that have no access to a managed key service.
type LocalGateway struct {
	activeID string
	keys     map[string]*[32]byte
}

// NewLocalGateway constructs a local gateway. Retired keys stay usable for decrypt.
func NewLocalGateway(active LocalKey, retired ...LocalKey) (*LocalGateway, error) {
	g := &LocalGateway{keys: make(map[string]*[32]byte, 1+len(retired))}
	for i, k := range append([]LocalKey{active}, retired...) {
		id := strings.TrimSpace(k.ID)
		if id == "" || k.Secret == "" {
			return nil, apperr.New(apperr.KindEncryptionFailure, "local key id and secret are required")
		}
		sum := sha256.Sum256([]byte(k.Secret))
		g.keys[id] = &sum
		if i == 0 {
			g.activeID = id
		}
	}
	return g, nil
}

// Encrypt seals plaintext with the active key.
func (g *LocalGateway) Encrypt(ctx context.Context, plaintext string) (Ciphertext, error) {
	if err := ctx.Err(); err != nil {
		return Ciphertext{}, encryptionError("failed to encrypt data", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return Ciphertext{}, encryptionError("failed to generate nonce", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, g.keys[g.activeID])
	return Ciphertext{
		Value: base64.StdEncoding.EncodeToString(sealed),
		KeyID: g.activeID,
	}, nil
}

// Decrypt opens a ciphertext with the key it names.
func (g *LocalGateway) Decrypt(ctx context.Context, ciphertext Ciphertext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", encryptionError("failed to decrypt data", err)
	}
	blob, err := decodeCiphertext(ciphertext.Value)
	if err != nil {
		return "", err
	}
	key, ok := g.keys[strings.TrimSpace(ciphertext.KeyID)]
	if !ok {
		return "", encryptionError("unknown encryption key "+ciphertext.KeyID, nil)
	}
	if len(blob) < nonceSize+secretbox.Overhead {
		return "", encryptionError("malformed ciphertext", nil)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])
	plaintext, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, key)
	if !ok {
		return "", encryptionError("ciphertext authentication failed", nil)
	}
	return string(plaintext), nil
}

var _ Gateway = (*LocalGateway)(nil)
