package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

// fileEntries mirrors the two storage keys the mobile builds use.
type fileEntries struct {
	Token     string          `json:"auth_token"`
	Principal json.RawMessage `json:"auth_user"`
}

// FileStore keeps credentials in a single file. With a key set the
// file content is sealed with nacl/secretbox (random nonce prepended);
// without one it is plain JSON.
type FileStore struct {
	path string
	key  *[32]byte
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// NewEncryptedFileStore creates a file-backed store sealed with the
// given hex-encoded 32-byte key.
func NewEncryptedFileStore(path, hexKey string) (*FileStore, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &FileStore{path: path, key: &key}, nil
}

func (s *FileStore) Save(ctx context.Context, token string, principal []byte) error {
	blob, err := json.Marshal(fileEntries{Token: token, Principal: principal})
	if err != nil {
		return err
	}
	if s.key != nil {
		var nonce [24]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return err
		}
		blob = secretbox.Seal(nonce[:], blob, &nonce, s.key)
	}
	return os.WriteFile(s.path, blob, 0o600)
}

func (s *FileStore) Load(ctx context.Context) (string, []byte, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}
	if s.key != nil {
		if len(blob) < 24 {
			return "", nil, ErrNotFound
		}
		var nonce [24]byte
		copy(nonce[:], blob[:24])
		opened, ok := secretbox.Open(nil, blob[24:], &nonce, s.key)
		if !ok {
			// Wrong key or corrupted file: treat as absent
			return "", nil, ErrNotFound
		}
		blob = opened
	}
	var entries fileEntries
	if err := json.Unmarshal(blob, &entries); err != nil {
		return "", nil, ErrNotFound
	}
	if entries.Token == "" || len(entries.Principal) == 0 {
		return "", nil, ErrNotFound
	}
	return entries.Token, entries.Principal, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
