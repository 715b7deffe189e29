package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var errProtocol = errors.New("protocol error")

const maxJobIDLen = 128

// Job is one mining.notify, immutable once the coinbase is assembled.
type Job struct {
	JobID          string
	PrevHash       string
	Coinbase1      string
	Coinbase2      string
	MerkleBranches []string
	Version        string
	Bits           string
	NTime          string
	CleanJobs      bool

	// Filled in by the stratum session when the job is accepted.
	Extranonce1 string
	Extranonce2 string
	CoinbaseTx  []byte
	ReceivedAt  time.Time
}

// jobFromNotify validates mining.notify params:
// [job_id, prevhash, coinb1, coinb2, merkle_branch[], version, nbits, ntime, clean_jobs]
func jobFromNotify(params []any) (*Job, error) {
	if len(params) < 9 {
		return nil, fmt.Errorf("%w: mining.notify expects 9 params, got %d", errProtocol, len(params))
	}
	var strs [8]string
	for _, idx := range []int{0, 1, 2, 3, 5, 6, 7} {
		s, ok := params[idx].(string)
		if !ok {
			return nil, fmt.Errorf("%w: mining.notify param %d is %T, want string", errProtocol, idx, params[idx])
		}
		strs[idx] = s
	}
	job := &Job{
		JobID:     strs[0],
		PrevHash:  strs[1],
		Coinbase1: strs[2],
		Coinbase2: strs[3],
		Version:   strs[5],
		Bits:      strs[6],
		NTime:     strs[7],
	}
	if job.JobID == "" || len(job.JobID) > maxJobIDLen {
		return nil, fmt.Errorf("%w: bad job id length %d", errProtocol, len(job.JobID))
	}

	rawBranches, ok := params[4].([]any)
	if !ok && params[4] != nil {
		return nil, fmt.Errorf("%w: merkle branches are %T, want array", errProtocol, params[4])
	}
	job.MerkleBranches = make([]string, 0, len(rawBranches))
	for i, b := range rawBranches {
		s, ok := b.(string)
		if !ok || len(s) != 64 {
			return nil, fmt.Errorf("%w: merkle branch %d malformed", errProtocol, i)
		}
		job.MerkleBranches = append(job.MerkleBranches, s)
	}

	switch clean := params[8].(type) {
	case bool:
		job.CleanJobs = clean
	case nil:
	default:
		return nil, fmt.Errorf("%w: clean_jobs is %T, want bool", errProtocol, params[8])
	}

	if len(job.PrevHash) != 64 {
		return nil, fmt.Errorf("%w: prevhash must be 64 hex chars", errProtocol)
	}
	for _, f := range []struct{ name, value string }{
		{"version", job.Version},
		{"nbits", job.Bits},
		{"ntime", job.NTime},
	} {
		if _, err := parseUint32BEHex(f.value); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errProtocol, f.name, err)
		}
	}
	return job, nil
}

// assembleCoinbase builds coinb1 || extranonce1 || extranonce2 || coinb2.
func (j *Job) assembleCoinbase(extranonce1, extranonce2 string) error {
	raw, err := hex.DecodeString(j.Coinbase1 + extranonce1 + extranonce2 + j.Coinbase2)
	if err != nil {
		return fmt.Errorf("%w: coinbase hex: %v", errProtocol, err)
	}
	j.Extranonce1 = extranonce1
	j.Extranonce2 = extranonce2
	j.CoinbaseTx = raw
	return nil
}
