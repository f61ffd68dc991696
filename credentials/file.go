package credentials

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var _ Store = (*FileStore)(nil)

const (
	saltLength = 16

	// argon2id parameters for deriving the file key from the passphrase
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// FileStore persists credentials to a single encrypted file. The whole
// key-value document is serialized as JSON and sealed with
// XChaCha20-Poly1305 under an argon2id-derived key.
//
// File layout: salt (16 bytes) || nonce (24 bytes) || ciphertext.
// Writes go through a temp file and rename, so a crash mid-write leaves
// the previous contents intact.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

// NewFileStore creates a file-backed store at path. The file is created on
// the first Set; a missing file reads as an empty store.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("[NewFileStore] path is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("[NewFileStore] passphrase is required")
	}

	return &FileStore{
		path:       path,
		passphrase: []byte(passphrase),
	}, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}

	value, ok := values[key]
	return value, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	values[key] = value
	return s.save(values)
}

func (s *FileStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := values[key]; !ok {
		return nil
	}

	delete(values, key)
	return s.save(values)
}

func (s *FileStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[FileStore.ClearAll] remove: %w", err)
	}
	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileStore.load] read: %w", err)
	}

	if len(data) < saltLength+chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("[FileStore.load] credential file is truncated")
	}

	salt := data[:saltLength]
	nonce := data[saltLength : saltLength+chacha20poly1305.NonceSizeX]
	ciphertext := data[saltLength+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("[FileStore.load] cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("[FileStore.load] decrypt: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, fmt.Errorf("[FileStore.load] unmarshal: %w", err)
	}

	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("[FileStore.save] marshal: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("[FileStore.save] salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("[FileStore.save] cipher: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("[FileStore.save] nonce: %w", err)
	}

	data := make([]byte, 0, saltLength+len(nonce)+len(plaintext)+aead.Overhead())
	data = append(data, salt...)
	data = append(data, nonce...)
	data = aead.Seal(data, nonce, plaintext, nil)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("[FileStore.save] temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("[FileStore.save] write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("[FileStore.save] chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("[FileStore.save] close: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("[FileStore.save] rename: %w", err)
	}

	return nil
}

func (s *FileStore) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}
