package main

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestMerkleRootWithoutBranchesIsCoinbaseHash(t *testing.T) {
	coinbase := []byte("coinbase transaction bytes")
	want := doubleSHA256(coinbase)
	for _, mode := range []string{merkleModeTree, merkleModeBranch} {
		got := merkleRootForMode(mode, coinbase, nil)
		if !bytes.Equal(got, want[:]) {
			t.Errorf("%s: root %x, want %x", mode, got, want)
		}
	}
}

func TestMerkleRootModes(t *testing.T) {
	coinbase := []byte{0x01, 0x00, 0x00, 0x00}
	var b1, b2 [32]byte
	for i := range b1 {
		b1[i] = 0x11
		b2[i] = 0x22
	}

	tests := []struct {
		name     string
		mode     string
		branches [][32]byte
		want     string
	}{
		{
			name:     "tree_one_branch",
			mode:     merkleModeTree,
			branches: [][32]byte{b1},
			want:     "6cd79f89ca5045119f9b134ab8a3133296c3974aae9b6aca9eec8c65a7506f3c",
		},
		{
			name:     "tree_odd_leaves",
			mode:     merkleModeTree,
			branches: [][32]byte{b1, b2},
			want:     "fc20cdbe96627fcf06b41e418aa90fb9d27c3e5731052c1d0f700e497cd34e31",
		},
		{
			name:     "branch_one",
			mode:     merkleModeBranch,
			branches: [][32]byte{b1},
			want:     "6cd79f89ca5045119f9b134ab8a3133296c3974aae9b6aca9eec8c65a7506f3c",
		},
		{
			name:     "branch_fold",
			mode:     merkleModeBranch,
			branches: [][32]byte{b1, b2},
			want:     "9e8cd9f25dd93e5d781648be3b697119fb4bec7f38253a9262b682afd25f0f14",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := hex.EncodeToString(merkleRootForMode(tc.mode, coinbase, tc.branches))
			if got != tc.want {
				t.Fatalf("root = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestMerkleRootEmptyCoinbase(t *testing.T) {
	if root := computeMerkleRoot(nil, nil); root != nil {
		t.Fatalf("tree root for empty coinbase = %x", root)
	}
	if root := computeMerkleRootFromBranches(nil, [][32]byte{{1}}); root != nil {
		t.Fatalf("branch root for empty coinbase = %x", root)
	}
}

func TestMerkleRootDoesNotMutateBranches(t *testing.T) {
	branches := [][32]byte{{1}, {2}, {3}}
	orig := append([][32]byte(nil), branches...)
	_ = computeMerkleRoot([]byte{0xaa}, branches)
	for i := range orig {
		if branches[i] != orig[i] {
			t.Fatalf("branch %d changed", i)
		}
	}
}

func TestDecodeMerkleBranches(t *testing.T) {
	good := "1111111111111111111111111111111111111111111111111111111111111111"
	out, err := decodeMerkleBranches([]string{good})
	if err != nil || len(out) != 1 || out[0][0] != 0x11 {
		t.Fatalf("decode = %x, %v", out, err)
	}
	if _, err := decodeMerkleBranches([]string{good, "zz"}); err == nil {
		t.Fatalf("expected error for malformed branch")
	}
}

func TestSerializeHeaderLayout(t *testing.T) {
	f := headerFields{version: 0x20000000, ntime: 0x5f5e1000, bits: 0x1d00ffff}
	f.prevHash[0] = 0xaa
	f.merkleRoot[31] = 0xbb
	var hdr [blockHeaderSize]byte
	serializeHeader(&hdr, &f, 0x01020304)

	want := map[int]byte{
		0: 0x00, 3: 0x20, // version LE
		4: 0xaa, 67: 0xbb,
		68: 0x00, 71: 0x5f, // time LE
		72: 0xff, 75: 0x1d, // bits LE
		76: 0x04, 79: 0x01, // nonce LE
	}
	for idx, b := range want {
		if hdr[idx] != b {
			t.Errorf("header[%d] = %02x, want %02x", idx, hdr[idx], b)
		}
	}

	putHeaderNonce(&hdr, 0xdeadbeef)
	if hdr[76] != 0xef || hdr[79] != 0xde {
		t.Fatalf("nonce not rewritten: %x", hdr[76:])
	}
}
