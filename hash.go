package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const blockHeaderSize = 80

var errHeaderSize = errors.New("block header size mismatch")

// doubleSHA256 returns SHA-256(SHA-256(b)) in natural digest order.
func doubleSHA256(b []byte) [32]byte {
	first := sha256Sum(b)
	return sha256Sum(first[:])
}

// hashBlockHeader hashes a serialized 80-byte header.
func hashBlockHeader(header []byte) ([32]byte, error) {
	if len(header) != blockHeaderSize {
		return [32]byte{}, fmt.Errorf("%w: got %d bytes", errHeaderSize, len(header))
	}
	return doubleSHA256(header), nil
}

// hashToBigEndian flips a digest into the numeric (most significant byte
// first) order used for target comparison and block explorers.
func hashToBigEndian(digest [32]byte) [32]byte {
	reverseBytes32(&digest)
	return digest
}

// hashToDisplayHex renders a natural-order digest the way block explorers do.
func hashToDisplayHex(digest [32]byte) string {
	return chainhash.Hash(digest).String()
}

func reverseBytes(in []byte) []byte {
	out := append([]byte(nil), in...)
	slices.Reverse(out)
	return out
}

// reverseBytes32 reverses a 32-byte array in place.
func reverseBytes32(b *[32]byte) {
	for i, j := 0, 31; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
