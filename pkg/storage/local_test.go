package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/opshq/backoffice/pkg/storage"
)

func TestLocalRoundTrip(t *testing.T) {
	s, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	key, size, err := s.Put(ctx, "report.pdf", strings.NewReader("payload bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if size != int64(len("payload bytes")) {
		t.Fatalf("size: %d", size)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("key should keep the extension: %q", key)
	}

	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != "payload bytes" {
		t.Fatalf("content mismatch: %q", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); err == nil {
		t.Fatal("Get after Delete should fail")
	}
}

func TestLocalDeleteMissingIsNoError(t *testing.T) {
	s, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if err := s.Delete(context.Background(), "never-existed.bin"); err != nil {
		t.Fatalf("deleting a missing object should be a no-op: %v", err)
	}
}

func TestLocalKeysAreUnique(t *testing.T) {
	s, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	k1, _, err := s.Put(ctx, "a.txt", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	k2, _, err := s.Put(ctx, "a.txt", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if k1 == k2 {
		t.Fatalf("same name produced the same key: %q", k1)
	}

	// keys cannot escape the root
	if _, err := s.Get(ctx, "../../etc/passwd"); err == nil {
		t.Fatal("path traversal key should not resolve")
	}
}
