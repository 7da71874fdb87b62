package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/aretw0/statecraft/pkg/ports"
)

// EncryptedState is the state recorded on envelopes written by the encryption
// middleware.
const EncryptedState = "encrypted"

// ErrKeySize is returned for keys that are not 32 bytes long.
var ErrKeySize = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new data. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried when decryption with ActiveKey fails, so keys can
	// be rotated without losing stored snapshots.
	FallbackKeys [][]byte
}

type envelope struct {
	Encrypted []byte `json:"__encrypted__"`
}

type encryptionMiddleware struct {
	next   ports.SnapshotStore
	config EncryptionConfig
}

// NewEncryptionMiddleware returns a middleware that stores every record as an
// AES-GCM sealed envelope. Only the machine id stays readable.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrKeySize
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, key string, rec *domain.Record) error {
	plainText, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt snapshot: %w", err)
	}
	body, err := json.Marshal(envelope{Encrypted: ciphertext})
	if err != nil {
		return err
	}

	return m.next.Save(ctx, key, &domain.Record{
		Machine: rec.Machine,
		State:   EncryptedState,
		Context: body,
		SavedAt: rec.SavedAt,
	})
}

func (m *encryptionMiddleware) Load(ctx context.Context, key string) (*domain.Record, error) {
	stored, err := m.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(stored.Context, &env); err != nil || len(env.Encrypted) == 0 {
		return nil, errors.New("snapshot is missing encrypted data envelope")
	}

	plainText, err := decryptWithRotation(env.Encrypted, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt snapshot: %w", err)
	}

	var rec domain.Record
	if err := json.Unmarshal(plainText, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted snapshot: %w", err)
	}
	return &rec, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
