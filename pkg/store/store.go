// Package store provides the obfuscated local key/value store backing
// session, auth and notification persistence.
//
// Values are JSON-encoded per key and the whole keyspace is written to a
// single file sealed with ChaCha20-Poly1305, the key derived from a
// configured secret via HKDF. This is obfuscation of at-rest data, not a
// security boundary: the secret ships with the client.
//
// No method returns an error. Every internal failure is logged and degraded
// to a safe fallback (nil, no-op, false), so callers never have to handle
// persistence faults inline.
package store

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	cryptorand "crypto/rand"

	"github.com/manas-swain-001/cms-client/pkg/logger"
)

type Store struct {
	mu   sync.RWMutex
	path string
	aead cipher.AEAD
	data map[string]json.RawMessage
	log  logger.Logger
}

// New opens (or creates) the store file at path. An empty secret derives the
// obfuscation key from the path itself. An unreadable or corrupt file starts
// the store empty rather than failing.
func New(path, secret string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Default()
	}
	if secret == "" {
		secret = path
	}

	s := &Store{
		path: path,
		aead: deriveAEAD(secret),
		data: make(map[string]json.RawMessage),
		log:  log,
	}
	s.load()
	return s
}

// SetItem serializes value to JSON and persists it under key. A value that
// cannot be serialized leaves the store untouched.
func (s *Store) SetItem(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("store: value not serializable, dropping write", "key", key, "error", err)
		return
	}

	s.mu.Lock()
	s.data[key] = raw
	s.persistLocked()
	s.mu.Unlock()
}

// GetItem returns the decoded value under key, nil if absent. If the stored
// bytes fail to decode as JSON, the raw string is returned unchanged.
func (s *Store) GetItem(key string) any {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn("store: stored value is not valid JSON, returning raw string", "key", key, "error", err)
		return string(raw)
	}
	return v
}

// GetString returns the value under key if it is a string, "" otherwise.
func (s *Store) GetString(key string) string {
	v, _ := s.GetItem(key).(string)
	return v
}

// Unmarshal decodes the value under key into dest. Reports whether dest was
// populated.
func (s *Store) Unmarshal(key string, dest any) bool {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		s.log.Warn("store: cannot decode stored value", "key", key, "error", err)
		return false
	}
	return true
}

// RemoveItem deletes key. Removing an absent key is a no-op.
func (s *Store) RemoveItem(key string) {
	s.mu.Lock()
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.persistLocked()
	}
	s.mu.Unlock()
}

// Clear empties the store and its on-disk copy.
func (s *Store) Clear() {
	s.mu.Lock()
	s.data = make(map[string]json.RawMessage)
	s.persistLocked()
	s.mu.Unlock()
}

// HasItem reports whether key is present.
func (s *Store) HasItem(key string) bool {
	s.mu.RLock()
	_, ok := s.data[key]
	s.mu.RUnlock()
	return ok
}

func deriveAEAD(secret string) cipher.AEAD {
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("cms-client-store"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		panic("unreachable")
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		panic("unreachable")
	}
	return aead
}

func (s *Store) load() {
	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("store: cannot read store file, starting empty", "path", s.path, "error", err)
		}
		return
	}

	if len(sealed) < s.aead.NonceSize() {
		s.log.Warn("store: store file truncated, starting empty", "path", s.path)
		return
	}

	nonce, box := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, box, nil)
	if err != nil {
		s.log.Warn("store: cannot unseal store file, starting empty", "path", s.path, "error", err)
		return
	}

	if err := json.Unmarshal(plain, &s.data); err != nil {
		s.log.Warn("store: store file contents corrupt, starting empty", "path", s.path, "error", err)
		s.data = make(map[string]json.RawMessage)
	}
}

// persistLocked writes the full keyspace atomically. Callers hold mu.
func (s *Store) persistLocked() {
	plain, err := json.Marshal(s.data)
	if err != nil {
		s.log.Warn("store: cannot encode keyspace", "error", err)
		return
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := cryptorand.Read(nonce); err != nil {
		s.log.Warn("store: cannot generate nonce", "error", err)
		return
	}
	sealed := append(nonce, s.aead.Seal(nil, nonce, plain, nil)...)

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Warn("store: cannot create store directory", "error", err)
		return
	}
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		s.log.Warn("store: cannot write store file", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Warn("store: cannot replace store file", "path", s.path, "error", err)
	}
}
