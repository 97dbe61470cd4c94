package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is the canonical CBOR encoding mode used for cache entries,
// grounded on chazu-maggie's vm/dist/wire.go: canonical encoding keeps
// the cache key (a hash of the source) and the cache value's bytes
// reproducible across runs.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("xrfc: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// cacheEntry is what's actually written to disk: the opt level the
// chunks were optimized at, so a cache hit at a different -O level is
// correctly treated as a miss.
type cacheEntry struct {
	OptLevel int     `cbor:"opt_level"`
	Chunks   []Chunk `cbor:"chunks"`
}

// cacheKey hashes the source bytes together with the requested
// optimization level, so two builds of the same source at different -O
// settings never collide.
func cacheKey(source []byte, optLevel int) string {
	h := sha256.New()
	h.Write(source)
	fmt.Fprintf(h, ":O%d", optLevel)
	return hex.EncodeToString(h.Sum(nil))
}

// loadCache looks up a previously compiled-and-optimized chunk list for
// source under cacheDir. A missing or unreadable entry is reported as a
// plain cache miss (ok == false), never as an error: the cache is an
// optimization, not a correctness dependency.
func loadCache(cacheDir string, source []byte, optLevel int) (chunks []Chunk, ok bool) {
	if cacheDir == "" {
		return nil, false
	}
	path := filepath.Join(cacheDir, cacheKey(source, optLevel)+".cbor")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := cbor.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if entry.OptLevel != optLevel {
		return nil, false
	}
	return entry.Chunks, true
}

// storeCache writes chunks to the cache, keyed by source content and opt
// level. Failures are swallowed by the caller; a cache write that can't
// land doesn't fail the build.
func storeCache(cacheDir string, source []byte, optLevel int, chunks []Chunk) error {
	if cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}

	data, err := cborEncMode.Marshal(cacheEntry{OptLevel: optLevel, Chunks: chunks})
	if err != nil {
		return fmt.Errorf("xrfc: marshal cache entry: %w", err)
	}

	path := filepath.Join(cacheDir, cacheKey(source, optLevel)+".cbor")
	return os.WriteFile(path, data, 0o644)
}
