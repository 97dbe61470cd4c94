package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	source := []byte("01234 56789 ABCDE FFFFF FFFFF")
	next := 2
	chunks := []Chunk{
		{Commands: []Command{{Op: OpSetTop, Payload: 7}}, Line: 1, Col: 1, Next: &next},
	}

	if err := storeCache(dir, source, 2, chunks); err != nil {
		t.Fatalf("storeCache: %v", err)
	}

	got, ok := loadCache(dir, source, 2)
	if !ok {
		t.Fatal("loadCache reported a miss right after storeCache")
	}
	if len(got) != 1 || got[0].Commands[0].Payload != 7 {
		t.Fatalf("loadCache returned %+v, want the stored chunk list", got)
	}
}

func TestCacheMissOnDifferentOptLevel(t *testing.T) {
	dir := t.TempDir()
	source := []byte("FFFFF")
	if err := storeCache(dir, source, 2, []Chunk{{Commands: []Command{{Op: OpNop}}}}); err != nil {
		t.Fatalf("storeCache: %v", err)
	}

	if _, ok := loadCache(dir, source, 1); ok {
		t.Error("loadCache should miss when the opt level differs")
	}
}

func TestCacheMissOnDifferentSource(t *testing.T) {
	dir := t.TempDir()
	if err := storeCache(dir, []byte("FFFFF"), 0, []Chunk{{Commands: []Command{{Op: OpNop}}}}); err != nil {
		t.Fatalf("storeCache: %v", err)
	}
	if _, ok := loadCache(dir, []byte("00000"), 0); ok {
		t.Error("loadCache should miss on different source bytes")
	}
}

func TestCacheDisabledWithEmptyDir(t *testing.T) {
	if err := storeCache("", []byte("FFFFF"), 0, nil); err != nil {
		t.Fatalf("storeCache with empty dir should be a no-op, got: %v", err)
	}
	if _, ok := loadCache("", []byte("FFFFF"), 0); ok {
		t.Error("loadCache with empty dir should always miss")
	}
}

func TestCacheKeyFileLayout(t *testing.T) {
	dir := t.TempDir()
	source := []byte("FFFFF")
	if err := storeCache(dir, source, 0, []Chunk{{Commands: []Command{{Op: OpNop}}}}); err != nil {
		t.Fatalf("storeCache: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d cache files, want 1", len(entries))
	}
	if filepath.Ext(entries[0].Name()) != ".cbor" {
		t.Errorf("cache file %q should have a .cbor extension", entries[0].Name())
	}
}
