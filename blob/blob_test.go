package blob

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), []byte("test-secret"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := newTestStore(t)

	key, err := s.Put([]byte("jpeg bytes"), ".jpg")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("key %q should keep the extension", key)
	}

	data, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("Get returned %q", data)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(key); !os.IsNotExist(err) {
		t.Errorf("Get after delete: %v, want not-exist", err)
	}

	// Deleting again is a no-op, not an error.
	if err := s.Delete(key); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestPutIssuesUniqueKeys(t *testing.T) {
	s := newTestStore(t)
	a, err := s.Put([]byte("one"), ".jpg")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	b, err := s.Put([]byte("two"), ".jpg")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if a == b {
		t.Errorf("two puts returned the same key %q", a)
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	for _, key := range []string{"", "../etc/passwd", "a/b.jpg", `a\b.jpg`, "..", "foo..bar"} {
		if _, err := s.Path(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Path(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestSignedURLVerifies(t *testing.T) {
	s := newTestStore(t)
	key, err := s.Put([]byte("x"), ".jpg")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	raw := s.SignedURL("https://example.com", key, time.Minute)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse signed url %q: %v", raw, err)
	}
	if want := "/media/" + key; u.Path != want {
		t.Errorf("path = %q, want %q", u.Path, want)
	}

	exp := u.Query().Get("exp")
	sig := u.Query().Get("sig")
	if !s.Verify(key, exp, sig) {
		t.Error("freshly signed url should verify")
	}
	if s.Verify(key, exp, sig+"00") {
		t.Error("tampered signature should not verify")
	}
	if s.Verify("other.jpg", exp, sig) {
		t.Error("signature should be bound to the key")
	}

	other, err := New(t.TempDir(), []byte("different-secret"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if other.Verify(key, exp, sig) {
		t.Error("signature should not verify under a different secret")
	}
}

func TestSignedURLExpires(t *testing.T) {
	s := newTestStore(t)
	key := "photo.jpg"

	raw := s.SignedURL("https://example.com", key, -time.Minute)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse signed url %q: %v", raw, err)
	}
	if s.Verify(key, u.Query().Get("exp"), u.Query().Get("sig")) {
		t.Error("expired url should not verify")
	}

	// A forged future expiry with the old signature must fail too.
	future := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)
	if s.Verify(key, future, u.Query().Get("sig")) {
		t.Error("signature should be bound to the expiry")
	}
}
