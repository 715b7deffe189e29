package main

import (
	"errors"
	"fmt"
)

var errNoJob = errors.New("work item without job")

// workOptions selects the header conventions of the connected pool.
type workOptions struct {
	MerkleMode string
	// PrevHashWordSwap decodes the previous block hash from the per-word
	// swapped layout most stratum pools use instead of display order.
	PrevHashWordSwap bool
}

// WorkItem is a Job prepared for hashing. The engine builds one per job and
// hands each worker a copy restricted to its nonce range.
type WorkItem struct {
	Job *Job
	// MerkleRoot is in natural digest order (the order it takes in the header).
	MerkleRoot []byte
	Target     [32]byte
	Difficulty float64

	StartNonce uint32
	EndNonce   uint32

	PoolShareTarget     [32]byte
	PoolShareDifficulty float64

	fields headerFields
	header [blockHeaderSize]byte
	// cursor is the next offset from StartNonce in sequential mode.
	cursor uint64
	// cleanGen counts the clean jobs the engine had seen when it built
	// this item.
	cleanGen uint64
}

// NewWorkItem decodes the job's header fields and computes its merkle root,
// network target and difficulty. The pool share target starts at
// difficulty 1 until the pool says otherwise.
func NewWorkItem(job *Job, opts workOptions) (*WorkItem, error) {
	if job == nil {
		return nil, errNoJob
	}
	w := &WorkItem{
		Job:                 job,
		EndNonce:            maxNonce,
		PoolShareTarget:     maxTargetBytes,
		PoolShareDifficulty: 1,
	}

	version, err := parseUint32BEHex(job.Version)
	if err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	ntime, err := parseUint32BEHex(job.NTime)
	if err != nil {
		return nil, fmt.Errorf("ntime: %w", err)
	}
	w.fields.version = version
	w.fields.ntime = ntime

	if job.Bits == "" {
		w.Difficulty = 1.0
	} else {
		bits, err := parseUint32BEHex(job.Bits)
		if err != nil {
			return nil, fmt.Errorf("nbits: %w", err)
		}
		w.fields.bits = bits
		w.Target = compactToTarget(bits)
		w.Difficulty = difficultyFromTarget(w.Target)
	}

	prev, err := decodeHex32(job.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("prevhash: %w", err)
	}
	if opts.PrevHashWordSwap {
		swapWords32(&prev)
	} else {
		reverseBytes32(&prev)
	}
	w.fields.prevHash = prev

	branches, err := decodeMerkleBranches(job.MerkleBranches)
	if err != nil {
		return nil, err
	}
	w.MerkleRoot = merkleRootForMode(opts.MerkleMode, job.CoinbaseTx, branches)
	copy(w.fields.merkleRoot[:], w.MerkleRoot)

	serializeHeader(&w.header, &w.fields, 0)
	return w, nil
}

// MerkleRootHex is the merkle root in display order.
func (w *WorkItem) MerkleRootHex() string {
	if len(w.MerkleRoot) != 32 {
		return ""
	}
	var root [32]byte
	copy(root[:], w.MerkleRoot)
	return hashToDisplayHex(root)
}

// SetPoolShareTarget derives the share target from a pool difficulty.
// Non-positive difficulties are ignored.
func (w *WorkItem) SetPoolShareTarget(difficulty float64) bool {
	target, ok := targetFromDifficulty(difficulty)
	if !ok {
		return false
	}
	w.PoolShareTarget = target
	w.PoolShareDifficulty = difficulty
	return true
}

// PrepareHeader returns the 80-byte header for nonce. The returned slice
// aliases the item's scratch buffer and is only valid until the next call.
func (w *WorkItem) PrepareHeader(nonce uint32) []byte {
	putHeaderNonce(&w.header, nonce)
	return w.header[:]
}

// IsValidShare checks a big-endian hash against the pool share target.
func (w *WorkItem) IsValidShare(hash [32]byte) bool {
	return isValidShare(hash, w.PoolShareTarget)
}

// MeetsNetworkTarget reports whether a big-endian hash would solve the block.
func (w *WorkItem) MeetsNetworkTarget(hash [32]byte) bool {
	if w.Target == ([32]byte{}) {
		return false
	}
	return isValidShare(hash, w.Target)
}

// withRange copies the item for one worker. The header scratch buffer is an
// array, so every copy hashes into its own memory.
func (w *WorkItem) withRange(start, end uint32) *WorkItem {
	cp := *w
	cp.StartNonce = start
	cp.EndNonce = end
	cp.cursor = 0
	return &cp
}

// nextSequential returns the next unsearched nonce of the range.
func (w *WorkItem) nextSequential() (uint32, bool) {
	span := uint64(w.EndNonce) - uint64(w.StartNonce)
	if w.cursor > span {
		return 0, false
	}
	n := w.StartNonce + uint32(w.cursor)
	w.cursor++
	return n, true
}

func (w *WorkItem) rangeSize() uint64 {
	return uint64(w.EndNonce) - uint64(w.StartNonce) + 1
}
