package main

// sha256SumFunc is the single-pass SHA-256 used by every hashing path. The
// implementation is selected at build time (see hash_sha256_simd.go and
// hash_sha256_noavx.go).
type sha256SumFunc func([]byte) [32]byte

var sha256Sum sha256SumFunc
