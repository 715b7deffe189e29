package main

import (
	"math"
	"path/filepath"
	"testing"
	"time"
)

type memoryBestShareStore struct {
	loaded []BestShare
	saved  chan []BestShare
	closed bool
}

func (s *memoryBestShareStore) LoadBestShares() ([]BestShare, error) { return s.loaded, nil }
func (s *memoryBestShareStore) SaveBestShares(shares []BestShare) error {
	s.saved <- shares
	return nil
}
func (s *memoryBestShareStore) Close() error { s.closed = true; return nil }

func TestMinerStatsCounters(t *testing.T) {
	m := newMinerStats(nil)
	m.ShareAccepted()
	m.ShareAccepted()
	m.ShareRejected("Job not found (code 21)")
	m.ShareRejected("")
	m.AddHashes(1000)
	m.AddHashes(500)
	m.UpdateJob("abc")
	m.UpdateActiveThreads(4)
	m.UpdateNetworkDifficulty(1.5e14)
	m.UpdatePoolDifficulty(16)
	m.UpdatePoolStatus(sessionMining.String())

	s := m.Snapshot()
	if s.Accepted != 2 || s.Rejected != 2 || s.TotalHashes != 1500 {
		t.Fatalf("counters %+v", s)
	}
	if s.RejectReasons["Job not found (code 21)"] != 1 || s.RejectReasons["unknown"] != 1 {
		t.Fatalf("reject reasons %v", s.RejectReasons)
	}
	if s.JobID != "abc" || s.ActiveThreads != 4 || s.NetworkDifficulty != 1.5e14 || s.PoolDifficulty != 16 || s.PoolStatus != "mining" {
		t.Fatalf("snapshot %+v", s)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close without store: %v", err)
	}
}

func TestMinerStatsHashrateAverage(t *testing.T) {
	m := newMinerStats(nil)
	m.UpdateHashrate(100)
	m.UpdateHashrate(300)
	m.UpdateHashrate(math.NaN())
	s := m.Snapshot()
	if s.Hashrate != 0 {
		t.Fatalf("NaN hashrate stored as %v", s.Hashrate)
	}
	if math.Abs(s.AverageHashrate-400.0/3) > 1e-9 {
		t.Fatalf("average %v", s.AverageHashrate)
	}

	for i := 0; i < hashrateHistorySize; i++ {
		m.UpdateHashrate(50)
	}
	if avg := m.Snapshot().AverageHashrate; avg != 50 {
		t.Fatalf("average after window rollover %v", avg)
	}
}

func TestBestSharesSortedAndBounded(t *testing.T) {
	m := newMinerStats(nil)
	m.UpdateBestDifficulty(0, 0.5, "below-floor")
	m.UpdateBestDifficulty(0, 1.0, "at-floor")
	if len(m.SnapshotBestShares()) != 0 {
		t.Fatalf("difficulties at or below the floor recorded")
	}

	for i := 1; i <= bestShareCount+5; i++ {
		m.UpdateBestDifficulty(i%3, float64(i*10), "h")
	}
	shares := m.SnapshotBestShares()
	if len(shares) != bestShareCount {
		t.Fatalf("kept %d shares", len(shares))
	}
	for i := 1; i < len(shares); i++ {
		if shares[i].Difficulty > shares[i-1].Difficulty {
			t.Fatalf("not sorted at %d: %v", i, shares)
		}
	}
	if best := m.BestShare(); best.Difficulty != float64((bestShareCount+5)*10) {
		t.Fatalf("best %+v", best)
	}
	if worst := shares[len(shares)-1].Difficulty; worst != 60 {
		t.Fatalf("worst kept %v", worst)
	}
	if m.BestShare().Worker != workerLabel(2) || m.BestShare().Timestamp.IsZero() {
		t.Fatalf("best share metadata %+v", m.BestShare())
	}
}

func TestBestSharesPersistThroughStore(t *testing.T) {
	store := &memoryBestShareStore{
		loaded: []BestShare{{Worker: "cpu0", Difficulty: 500, Timestamp: time.Unix(1700000000, 0).UTC()}},
		saved:  make(chan []BestShare, 8),
	}
	m := newMinerStats(store)
	if m.BestShare().Difficulty != 500 {
		t.Fatalf("loaded best %+v", m.BestShare())
	}
	m.UpdateBestDifficulty(1, 900, "00ff")

	select {
	case saved := <-store.saved:
		if len(saved) != 2 || saved[0].Difficulty != 900 || saved[1].Difficulty != 500 {
			t.Fatalf("saved %+v", saved)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("best shares not persisted")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !store.closed {
		t.Fatalf("store not closed")
	}
}

func TestBestShareAfterCloseIsDropped(t *testing.T) {
	store := &memoryBestShareStore{saved: make(chan []BestShare, 8)}
	m := newMinerStats(store)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	m.UpdateBestDifficulty(3, 4096, "0abc")
	if m.BestShare().Difficulty != 4096 {
		t.Fatalf("best share not recorded in memory: %+v", m.BestShare())
	}
	if len(store.saved) != 0 {
		t.Fatalf("best shares persisted after Close")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWorkerHashrates(t *testing.T) {
	m := newMinerStats(nil)
	m.UpdateWorkerHashrate(0, 100)
	m.UpdateWorkerHashrate(1, -5)
	m.UpdateWorkerHashrate(2, 300)
	m.UpdateWorkerHashrate(0, 150)

	got := m.Snapshot().WorkerHashrates
	if len(got) != 3 || got[0] != 150 || got[1] != 0 || got[2] != 300 {
		t.Fatalf("worker hashrates %v", got)
	}
	m.UpdateActiveThreads(2)
	got = m.Snapshot().WorkerHashrates
	if _, ok := got[2]; ok || len(got) != 2 {
		t.Fatalf("rate of removed worker kept: %v", got)
	}
	m.UpdateActiveThreads(0)
	if got = m.Snapshot().WorkerHashrates; len(got) != 0 {
		t.Fatalf("rates after stop %v", got)
	}
}

func TestSQLiteBestShareStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "state.db")
	store, err := openBestShareStore(path)
	if err != nil {
		t.Fatalf("openBestShareStore: %v", err)
	}
	if shares, err := store.LoadBestShares(); err != nil || len(shares) != 0 {
		t.Fatalf("empty store returned %v, %v", shares, err)
	}

	ts := time.Unix(1700000000, 0).UTC()
	want := []BestShare{
		{Worker: "cpu1", Difficulty: 123456.5, Timestamp: ts, Hash: "0000abcd"},
		{Worker: "cpu0", Difficulty: 42, Timestamp: ts.Add(time.Minute)},
		{Worker: "cpu3", Difficulty: 0},
	}
	if err := store.SaveBestShares(want); err != nil {
		t.Fatalf("SaveBestShares: %v", err)
	}
	if err := store.SaveBestShares(want[:2]); err != nil {
		t.Fatalf("second SaveBestShares: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = openBestShareStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	got, err := store.LoadBestShares()
	if err != nil {
		t.Fatalf("LoadBestShares: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d shares: %+v", len(got), got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("share %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMinerStatsWithSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := openBestShareStore(path)
	if err != nil {
		t.Fatalf("openBestShareStore: %v", err)
	}
	m := newMinerStats(store)
	m.UpdateBestDifficulty(0, 777, "00aa")
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = openBestShareStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	m = newMinerStats(store)
	defer m.Close()
	if best := m.BestShare(); best.Difficulty != 777 || best.Hash != "00aa" {
		t.Fatalf("best after restart %+v", best)
	}
}
