package main

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// TestBtcdAddressValidation checks validateWalletAddress against btcd's
// address parsing for the supported networks.
func TestBtcdAddressValidation(t *testing.T) {
	testCases := []struct {
		name    string
		address string
		network string
		valid   bool
	}{
		{
			name:    "mainnet_p2pkh_valid",
			address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", // Genesis coinbase
			network: "mainnet",
			valid:   true,
		},
		{
			name:    "mainnet_bech32_valid",
			address: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
			network: "mainnet",
			valid:   true,
		},
		{
			name:    "mainnet_bech32m_taproot_valid",
			address: "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr",
			network: "mainnet",
			valid:   true,
		},
		{
			name:    "testnet_p2pkh_valid",
			address: "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn",
			network: "testnet3",
			valid:   true,
		},
		{
			name:    "testnet_bech32_valid",
			address: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
			network: "testnet3",
			valid:   true,
		},
		{
			name:    "invalid_checksum",
			address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb",
			network: "mainnet",
			valid:   false,
		},
		{
			name:    "empty_address",
			address: "",
			network: "mainnet",
			valid:   false,
		},
		{
			name:    "testnet_on_mainnet_params",
			address: "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn",
			network: "mainnet",
			valid:   false,
		},
		{
			name:    "mainnet_on_testnet_params",
			address: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
			network: "testnet3",
			valid:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			params, err := chainParams(tc.network)
			if err != nil {
				t.Fatalf("chainParams(%s): %v", tc.network, err)
			}
			addr, btcdErr := btcutil.DecodeAddress(tc.address, params)
			btcdValid := btcdErr == nil && addr.IsForNet(params)

			err = validateWalletAddress(tc.address, tc.network)
			if (err == nil) != tc.valid {
				t.Fatalf("validateWalletAddress(%q, %s) err=%v, want valid=%v", tc.address, tc.network, err, tc.valid)
			}
			if btcdValid != tc.valid {
				t.Fatalf("btcd disagrees for %q: valid=%v", tc.address, btcdValid)
			}
		})
	}
}

// TestBtcdCompactToTargetCompat compares compactToTarget with btcd's
// CompactToBig for positive compact values.
func TestBtcdCompactToTargetCompat(t *testing.T) {
	cases := []uint32{
		0x1d00ffff, // difficulty 1
		0x1b0404cb,
		0x170331db,
		0x1a05db8b,
		0x1c0ae493,
		0x207fffff, // regtest
		0x03123456,
		0x02123456,
		0x01003456,
	}
	for _, bits := range cases {
		want := blockchain.CompactToBig(bits)
		got := compactToTarget(bits)
		if new(big.Int).SetBytes(got[:]).Cmp(want) != 0 {
			t.Errorf("bits %08x: got %x want %064x", bits, got, want)
		}
	}
}

func TestBtcdDifficultyCompat(t *testing.T) {
	for _, bits := range []uint32{0x1d00ffff, 0x1b0404cb, 0x170331db} {
		target := blockchain.CompactToBig(bits)
		want, _ := new(big.Rat).SetFrac(chaincfg.MainNetParams.PowLimit, target).Float64()
		// PowLimit is 2^224-1 while the pool difficulty-1 target truncates
		// it to 0xffff<<208, so the two ratios differ by a tiny factor.
		got := difficultyFromTarget(compactToTarget(bits))
		if diff := (want - got) / want; diff < 0 || diff > 1e-4 {
			t.Errorf("bits %08x: difficulty %v vs btcd ratio %v", bits, got, want)
		}
	}
}

// TestBtcdHeaderSerializationCompat checks the header layout and hash
// against wire.BlockHeader for the first two mainnet blocks.
func TestBtcdHeaderSerializationCompat(t *testing.T) {
	testCases := []struct {
		name   string
		prev   string
		merkle string
		ts     int64
		bits   uint32
		nonce  uint32
		hash   string
	}{
		{
			name:   "genesis",
			prev:   "0000000000000000000000000000000000000000000000000000000000000000",
			merkle: "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
			ts:     1231006505,
			bits:   0x1d00ffff,
			nonce:  2083236893,
			hash:   "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
		},
		{
			name:   "block_1",
			prev:   "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
			merkle: "0e3e2357e806b6cdb1f70b54c3a3a17b6714ee1f0e68bebb44a74b1efd512098",
			ts:     1231469665,
			bits:   0x1d00ffff,
			nonce:  2573394689,
			hash:   "00000000839a8e6886ab5951d76f411475428afc90947ee320161bbf18eb6048",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prev := mustParseHash(tc.prev)
			merkle := mustParseHash(tc.merkle)
			hdr := &wire.BlockHeader{
				Version:    1,
				PrevBlock:  prev,
				MerkleRoot: merkle,
				Timestamp:  time.Unix(tc.ts, 0),
				Bits:       tc.bits,
				Nonce:      tc.nonce,
			}
			var buf bytes.Buffer
			if err := hdr.Serialize(&buf); err != nil {
				t.Fatalf("btcd serialize: %v", err)
			}

			fields := headerFields{
				version:    1,
				prevHash:   prev,
				merkleRoot: merkle,
				ntime:      uint32(tc.ts),
				bits:       tc.bits,
			}
			var ours [blockHeaderSize]byte
			serializeHeader(&ours, &fields, tc.nonce)
			if !bytes.Equal(ours[:], buf.Bytes()) {
				t.Fatalf("header mismatch:\nours: %x\nbtcd: %x", ours, buf.Bytes())
			}

			digest, err := hashBlockHeader(ours[:])
			if err != nil {
				t.Fatalf("hashBlockHeader: %v", err)
			}
			if got := hashToDisplayHex(digest); got != tc.hash || got != hdr.BlockHash().String() {
				t.Fatalf("hash %s, want %s", got, tc.hash)
			}
			if !isValidShare(hashToBigEndian(digest), compactToTarget(tc.bits)) {
				t.Fatalf("block hash does not meet its own target")
			}
		})
	}
}

// TestStratumPrevHashLayouts checks that both prevhash encodings decode to
// the header byte order btcd uses.
func TestStratumPrevHashLayouts(t *testing.T) {
	want := mustParseHash("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f")

	swapped := [32]byte(want)
	swapWords32(&swapped)
	job := testJob()
	job.PrevHash = hex.EncodeToString(swapped[:])
	w, err := NewWorkItem(job, workOptions{PrevHashWordSwap: true})
	if err != nil {
		t.Fatalf("NewWorkItem: %v", err)
	}
	if w.fields.prevHash != want {
		t.Fatalf("word-swapped prevhash decoded to %x", w.fields.prevHash)
	}

	job = testJob()
	job.PrevHash = want.String()
	w, err = NewWorkItem(job, workOptions{})
	if err != nil {
		t.Fatalf("NewWorkItem: %v", err)
	}
	if w.fields.prevHash != want {
		t.Fatalf("display prevhash decoded to %x", w.fields.prevHash)
	}
}

func TestChainhashDoubleHashCompat(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("abc"),
		make([]byte, blockHeaderSize),
		bytes.Repeat([]byte{0xa5}, 1000),
	}
	for _, in := range inputs {
		got := doubleSHA256(in)
		if want := chainhash.DoubleHashB(in); !bytes.Equal(got[:], want) {
			t.Errorf("doubleSHA256(%d bytes) = %x, want %x", len(in), got, want)
		}
	}
}

func mustParseHash(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return *h
}
