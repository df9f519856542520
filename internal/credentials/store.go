// Package credentials owns the locally stored token pair. The store keeps an
// in-memory copy so the presence check never touches the filesystem, and
// persists changes encrypted at rest.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/shreyansh232/plandrift/internal/crypto"
	"github.com/shreyansh232/plandrift/internal/domain"
)

// Store is a file-backed domain.CredentialStore.
type Store struct {
	path   string
	cipher crypto.Service

	mu    sync.RWMutex
	pair  domain.TokenPair
	known bool
}

// NewStore loads the credential file at path if it exists. A missing file is
// not an error; it just means no credential is present yet.
func NewStore(path string, cipher crypto.Service) (*Store, error) {
	s := &Store{path: path, cipher: cipher}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	plaintext, err := cipher.Decrypt(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential file: %w", err)
	}

	var pair domain.TokenPair
	if err := json.Unmarshal([]byte(plaintext), &pair); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}

	s.pair = pair
	s.known = !pair.IsZero()
	return s, nil
}

// HasCredential reports whether a local credential exists. Synchronous and
// side-effect-free.
func (s *Store) HasCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.known
}

// Tokens returns the current token pair, or domain.ErrNoCredential.
func (s *Store) Tokens() (domain.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.known {
		return domain.TokenPair{}, domain.ErrNoCredential
	}
	return s.pair, nil
}

// Save persists a new token pair, replacing any previous one. The file is
// written atomically via a temp file rename.
func (s *Store) Save(pair domain.TokenPair) error {
	if pair.IsZero() {
		return fmt.Errorf("refusing to save empty token pair")
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal token pair: %w", err)
	}

	ciphertext, err := s.cipher.Encrypt(string(data))
	if err != nil {
		return fmt.Errorf("failed to encrypt token pair: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(ciphertext), 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}

	s.pair = pair
	s.known = true
	return nil
}

// Clear removes the credential from memory and disk. Clearing an already
// empty store is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = domain.TokenPair{}
	s.known = false

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
