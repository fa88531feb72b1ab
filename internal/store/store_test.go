package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.db")
	s, err := Open(path, filepath.Join(dir, "credentials.lock"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSetGetOverwrite(t *testing.T) {
	s, _ := openTestStore(t)

	if _, ok, err := s.Get(NameAPIKey); err != nil || ok {
		t.Fatalf("expected miss on empty store, ok=%v err=%v", ok, err)
	}
	if err := s.Set(NameAPIKey, "mk_first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(NameAPIKey, "mk_second"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := s.Get(NameAPIKey)
	if err != nil || !ok || got != "mk_second" {
		t.Fatalf("unexpected get: %q ok=%v err=%v", got, ok, err)
	}
}

func TestDeleteAndNames(t *testing.T) {
	s, _ := openTestStore(t)
	_ = s.Set(NamePrivateKey, "0xabc")
	_ = s.Set(NameAPIKey, "mk_key")

	names, err := s.Names()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 2 || names[0] != NameAPIKey || names[1] != NamePrivateKey {
		t.Fatalf("unexpected names: %#v", names)
	}

	removed, err := s.Delete(NameAPIKey, NamePrivateKey, "missing")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok, _ := s.Get(NameAPIKey); ok {
		t.Fatal("expected api key to be gone")
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "credentials.db")
	lock := filepath.Join(dir, "nested", "credentials.lock")
	if Exists(path) {
		t.Fatal("store should not exist yet")
	}
	s, err := Open(path, lock)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(NameAPIKey, "mk_persisted"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = s.Close()

	if !Exists(path) {
		t.Fatal("expected store file to exist")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		t.Fatalf("expected owner-only permissions, got %v", info.Mode().Perm())
	}

	s, err = Open(path, lock)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, ok, _ := s.Get(NameAPIKey)
	if !ok || got != "mk_persisted" {
		t.Fatalf("expected persisted key, got %q", got)
	}
}

func TestNilStoreReadsAreMisses(t *testing.T) {
	var s *Store
	if _, ok, err := s.Get(NameAPIKey); ok || err != nil {
		t.Fatalf("expected nil store miss, ok=%v err=%v", ok, err)
	}
}

func TestWriteTimesOutWhileLockHeld(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "credentials.lock")
	s, err := Open(filepath.Join(dir, "credentials.db"), lockPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	prev := lockTimeout
	lockTimeout = 200 * time.Millisecond
	t.Cleanup(func() { lockTimeout = prev })

	holder := flock.New(lockPath)
	if err := holder.Lock(); err != nil {
		t.Fatalf("hold lock: %v", err)
	}

	start := time.Now()
	err = s.Set(NameAPIKey, "mk_blocked")
	if err == nil || !strings.Contains(err.Error(), "timeout acquiring lock") {
		t.Fatalf("expected lock timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("lock wait did not honour the timeout: %s", elapsed)
	}

	if err := holder.Unlock(); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	if err := s.Set(NameAPIKey, "mk_after"); err != nil {
		t.Fatalf("set after release: %v", err)
	}
}
