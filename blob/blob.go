// Package blob is a disk-backed object store for image bytes. Objects are
// addressed by opaque keys and read back through HMAC-signed, time-limited
// URLs so callers never get a durable public link.
package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for keys that do not look like store-issued keys.
var ErrInvalidKey = errors.New("invalid object key")

// Store writes objects under dir and signs access URLs with secret.
type Store struct {
	dir    string
	secret []byte
}

// New creates the storage directory if needed and returns a Store.
func New(dir string, secret []byte) (*Store, error) {
	if len(secret) == 0 {
		return nil, errors.New("blob: signing secret is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create dir: %w", err)
	}
	return &Store{dir: dir, secret: secret}, nil
}

// Put stores data under a fresh key with the given extension (e.g. ".jpg")
// and returns the key.
func (s *Store) Put(data []byte, ext string) (string, error) {
	key := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("blob: write %s: %w", key, err)
	}
	return key, nil
}

// Path returns the on-disk path for a key, rejecting anything that could
// escape the storage directory.
func (s *Store) Path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key), nil
}

// Get reads an object's bytes.
func (s *Store) Get(key string) ([]byte, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Delete removes an object. Missing objects are not an error.
func (s *Store) Delete(key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SignedURL returns a time-limited access URL for key, rooted at base
// (e.g. "https://example.com"). The URL is valid until now+ttl and is meant
// to be generated fresh on every read, never persisted.
func (s *Store) SignedURL(base, key string, ttl time.Duration) string {
	exp := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s/media/%s?exp=%d&sig=%s", strings.TrimSuffix(base, "/"), key, exp, s.sign(key, exp))
}

// Verify checks a key/expiry/signature triple from an access URL.
func (s *Store) Verify(key, expStr, sig string) bool {
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || time.Now().Unix() > exp {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.sign(key, exp)))
}

func (s *Store) sign(key string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%d", key, exp)
	return hex.EncodeToString(mac.Sum(nil))
}
