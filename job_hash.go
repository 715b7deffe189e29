package main

import (
	"bytes"
	"math"
	"math/big"
	"strconv"
)

// maxTarget is the difficulty-1 target, 0x00000000FFFF followed by zeros.
var maxTarget = func() *big.Int {
	n, _ := new(big.Int).SetString("00000000FFFF0000000000000000000000000000000000000000000000000000", 16)
	return n
}()

// maxUint256 is the maximum value representable in 256 bits.
var maxUint256 = func() *big.Int {
	n := new(big.Int).Lsh(big.NewInt(1), 256)
	return n.Sub(n, big.NewInt(1))
}()

var maxTargetBytes = bigToTarget(maxTarget)

// compactToTarget expands the 32-bit compact "bits" encoding into a
// big-endian 256-bit target. Mantissa bytes that would land outside the
// buffer are dropped.
func compactToTarget(bits uint32) [32]byte {
	var target [32]byte
	exponent := int(bits >> 24)
	mantissa := bits & 0x00ffffff
	if exponent <= 3 {
		mantissa >>= 8 * uint(3-exponent)
		target[29] = byte(mantissa >> 16)
		target[30] = byte(mantissa >> 8)
		target[31] = byte(mantissa)
		return target
	}
	offset := 32 - exponent
	for i, b := range [3]byte{byte(mantissa >> 16), byte(mantissa >> 8), byte(mantissa)} {
		if idx := offset + i; idx >= 0 && idx < len(target) {
			target[idx] = b
		}
	}
	return target
}

func bigToTarget(n *big.Int) [32]byte {
	var out [32]byte
	if n.Sign() <= 0 {
		return out
	}
	if n.Cmp(maxUint256) > 0 {
		n = maxUint256
	}
	n.FillBytes(out[:])
	return out
}

// difficultyRatio returns num/den computed exactly and rounded once to
// float64. Every difficulty in the miner goes through here.
func difficultyRatio(num, den *big.Int) float64 {
	if den.Sign() == 0 {
		return math.MaxFloat64
	}
	f, _ := new(big.Rat).SetFrac(num, den).Float64()
	return f
}

// difficultyFromTarget is maxTarget/target. A zero target is the neutral
// value produced by absent bits and reports difficulty 1.
func difficultyFromTarget(target [32]byte) float64 {
	t := new(big.Int).SetBytes(target[:])
	if t.Sign() == 0 {
		return 1.0
	}
	return difficultyRatio(maxTarget, t)
}

// targetFromDifficulty is maxTarget/diff, truncated and clamped to 256 bits.
// It reports false for non-positive or non-finite difficulties.
func targetFromDifficulty(diff float64) ([32]byte, bool) {
	if !(diff > 0) || math.IsInf(diff, 0) {
		return [32]byte{}, false
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(diff, 'g', -1, 64))
	if !ok || r.Sign() <= 0 {
		return [32]byte{}, false
	}
	target := new(big.Rat).SetInt(maxTarget)
	target.Quo(target, r)
	tgt := new(big.Int).Quo(target.Num(), target.Denom())
	if tgt.Sign() == 0 {
		tgt.SetInt64(1)
	}
	return bigToTarget(tgt), true
}

// hashDifficulty is maxTarget/hash for a big-endian hash. A zero hash has no
// finite difficulty and returns math.MaxFloat64.
func hashDifficulty(hash [32]byte) float64 {
	h := new(big.Int).SetBytes(hash[:])
	if h.Sign() == 0 {
		return math.MaxFloat64
	}
	return difficultyRatio(maxTarget, h)
}

// isValidShare reports hash <= target, both big-endian.
func isValidShare(hash, target [32]byte) bool {
	return bytes.Compare(hash[:], target[:]) <= 0
}
