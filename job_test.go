package main

import (
	"errors"
	"testing"
)

func notifyParams() []any {
	return []any{
		"job-1",
		"00000000000000000000000000000000000000000000000000000000000000ab",
		"01000000",
		"ffffffff",
		[]any{"1111111111111111111111111111111111111111111111111111111111111111"},
		"20000000",
		"1d00ffff",
		"495fab29",
		true,
	}
}

func TestJobFromNotify(t *testing.T) {
	job, err := jobFromNotify(notifyParams())
	if err != nil {
		t.Fatalf("jobFromNotify: %v", err)
	}
	if job.JobID != "job-1" || !job.CleanJobs || len(job.MerkleBranches) != 1 || job.Bits != "1d00ffff" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestJobFromNotifyRejectsMalformed(t *testing.T) {
	mutate := map[string]func(p []any) []any{
		"short":        func(p []any) []any { return p[:8] },
		"empty_id":     func(p []any) []any { p[0] = ""; return p },
		"numeric_id":   func(p []any) []any { p[0] = 7.0; return p },
		"short_prev":   func(p []any) []any { p[1] = "abcd"; return p },
		"bad_branch":   func(p []any) []any { p[4] = []any{"abcd"}; return p },
		"branch_type":  func(p []any) []any { p[4] = "abcd"; return p },
		"bad_version":  func(p []any) []any { p[5] = "2000000"; return p },
		"bad_nbits":    func(p []any) []any { p[6] = "zz00ffff"; return p },
		"bad_ntime":    func(p []any) []any { p[7] = 12; return p },
		"clean_string": func(p []any) []any { p[8] = "true"; return p },
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			_, err := jobFromNotify(fn(notifyParams()))
			if !errors.Is(err, errProtocol) {
				t.Fatalf("err = %v, want errProtocol", err)
			}
		})
	}
}

func TestAssembleCoinbase(t *testing.T) {
	job, err := jobFromNotify(notifyParams())
	if err != nil {
		t.Fatalf("jobFromNotify: %v", err)
	}
	if err := job.assembleCoinbase("aabbccdd", "00000001"); err != nil {
		t.Fatalf("assembleCoinbase: %v", err)
	}
	want := []byte{0x01, 0, 0, 0, 0xaa, 0xbb, 0xcc, 0xdd, 0, 0, 0, 0x01, 0xff, 0xff, 0xff, 0xff}
	if string(job.CoinbaseTx) != string(want) {
		t.Fatalf("coinbase = %x", job.CoinbaseTx)
	}
	if job.Extranonce2 != "00000001" {
		t.Fatalf("extranonce2 = %q", job.Extranonce2)
	}
	if err := job.assembleCoinbase("zz", ""); !errors.Is(err, errProtocol) {
		t.Fatalf("bad extranonce accepted: %v", err)
	}
}
