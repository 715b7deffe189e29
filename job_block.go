package main

import (
	"encoding/binary"
	"fmt"
)

const (
	merkleModeTree   = "tree"
	merkleModeBranch = "branch"
)

// decodeMerkleBranches decodes the hex branch list from mining.notify.
func decodeMerkleBranches(branches []string) ([][32]byte, error) {
	out := make([][32]byte, len(branches))
	for i, b := range branches {
		h, err := decodeHex32(b)
		if err != nil {
			return nil, fmt.Errorf("merkle branch %d: %w", i, err)
		}
		out[i] = h
	}
	return out, nil
}

// computeMerkleRoot treats the coinbase hash and the branches as the leaves
// of one tree, pairing neighbours (last leaf duplicated on odd levels) until
// a single node is left. An empty coinbase yields a nil root.
func computeMerkleRoot(coinbaseTx []byte, branches [][32]byte) []byte {
	if len(coinbaseTx) == 0 {
		return nil
	}
	layer := make([][32]byte, 0, 1+len(branches))
	layer = append(layer, doubleSHA256(coinbaseTx))
	layer = append(layer, branches...)

	var concat [64]byte
	for len(layer) > 1 {
		if len(layer)%2 == 1 {
			layer = append(layer, layer[len(layer)-1])
		}
		next := layer[:0]
		for i := 0; i+1 < len(layer); i += 2 {
			copy(concat[:32], layer[i][:])
			copy(concat[32:], layer[i+1][:])
			next = append(next, doubleSHA256(concat[:]))
		}
		layer = next
	}
	root := layer[0]
	return root[:]
}

// computeMerkleRootFromBranches folds each branch onto the running root in
// order, which is how stratum pools ship the coinbase merkle path.
func computeMerkleRootFromBranches(coinbaseTx []byte, branches [][32]byte) []byte {
	if len(coinbaseTx) == 0 {
		return nil
	}
	root := doubleSHA256(coinbaseTx)
	var concat [64]byte
	for _, b := range branches {
		copy(concat[:32], root[:])
		copy(concat[32:], b[:])
		root = doubleSHA256(concat[:])
	}
	return root[:]
}

func merkleRootForMode(mode string, coinbaseTx []byte, branches [][32]byte) []byte {
	if mode == merkleModeBranch {
		return computeMerkleRootFromBranches(coinbaseTx, branches)
	}
	return computeMerkleRoot(coinbaseTx, branches)
}

// headerFields holds the decoded, nonce-independent parts of a block header.
// prevHash and merkleRoot are stored in the byte order they occupy on the
// wire.
type headerFields struct {
	version    uint32
	prevHash   [32]byte
	merkleRoot [32]byte
	ntime      uint32
	bits       uint32
}

// serializeHeader writes the canonical 80-byte header layout:
//
//	header[0:4]   = version (LE)
//	header[4:36]  = previous block hash
//	header[36:68] = merkle root
//	header[68:72] = time (LE)
//	header[72:76] = bits (LE)
//	header[76:80] = nonce (LE)
//
// The merkle root goes in as the raw double-SHA-256 output. That is already
// the byte-reversed form of its display hex, so no further swap is applied.
func serializeHeader(dst *[blockHeaderSize]byte, f *headerFields, nonce uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], f.version)
	copy(dst[4:36], f.prevHash[:])
	copy(dst[36:68], f.merkleRoot[:])
	binary.LittleEndian.PutUint32(dst[68:72], f.ntime)
	binary.LittleEndian.PutUint32(dst[72:76], f.bits)
	binary.LittleEndian.PutUint32(dst[76:80], nonce)
}

func putHeaderNonce(dst *[blockHeaderSize]byte, nonce uint32) {
	binary.LittleEndian.PutUint32(dst[76:80], nonce)
}
