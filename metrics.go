package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MinerStats is the statistics sink behind the status line. Counters are
// lock-free; the best-share list is kept sorted by descending difficulty and
// written to the injected store from a single background goroutine.
type MinerStats struct {
	accepted      atomic.Uint64
	rejected      atomic.Uint64
	totalHashes   atomic.Uint64
	hashrateBits  atomic.Uint64
	networkDiff   atomic.Uint64
	poolDiff      atomic.Uint64
	activeThreads atomic.Int32

	mu            sync.RWMutex
	rejectReasons map[string]uint64
	jobID         string
	poolStatus    string
	start         time.Time
	history       [hashrateHistorySize]float64
	historyLen    int
	historyNext   int
	workerRates   map[int]float64

	bestSharesMu sync.RWMutex
	bestShares   [bestShareCount]BestShare
	bestLen      int

	store         bestShareStore
	bestShareChan chan []BestShare
	persistDone   chan struct{}

	// persistMu guards sends on bestShareChan against Close.
	persistMu sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// StatsSnapshot is a point-in-time copy for display.
type StatsSnapshot struct {
	Hashrate          float64
	AverageHashrate   float64
	TotalHashes       uint64
	Accepted          uint64
	Rejected          uint64
	RejectReasons     map[string]uint64
	JobID             string
	NetworkDifficulty float64
	PoolDifficulty    float64
	ActiveThreads     int
	WorkerHashrates   map[int]float64
	PoolStatus        string
	Uptime            time.Duration
	Best              BestShare
}

// newMinerStats loads the persisted best shares from store (which may be
// nil) and starts the persistence goroutine.
func newMinerStats(store bestShareStore) *MinerStats {
	m := &MinerStats{
		rejectReasons: make(map[string]uint64),
		workerRates:   make(map[int]float64),
		poolStatus:    sessionDisconnected.String(),
		start:         time.Now(),
		store:         store,
	}
	if store == nil {
		return m
	}
	shares, err := store.LoadBestShares()
	if err != nil {
		logger.Warn("load best shares", "error", err)
	}
	for _, share := range shares {
		m.recordBestShare(share)
	}
	if m.bestLen > 0 {
		best := m.bestShares[0]
		logger.Info("restored best difficulty", "difficulty", formatDifficulty(best.Difficulty),
			"at", best.Timestamp.Format(time.RFC3339))
	}
	m.bestShareChan = make(chan []BestShare, 1)
	m.persistDone = make(chan struct{})
	go m.bestShareWorker()
	return m
}

func (m *MinerStats) UpdateHashrate(hashesPerSecond float64) {
	if hashesPerSecond < 0 || math.IsNaN(hashesPerSecond) {
		hashesPerSecond = 0
	}
	m.hashrateBits.Store(math.Float64bits(hashesPerSecond))
	m.mu.Lock()
	m.history[m.historyNext] = hashesPerSecond
	m.historyNext = (m.historyNext + 1) % hashrateHistorySize
	if m.historyLen < hashrateHistorySize {
		m.historyLen++
	}
	m.mu.Unlock()
}

// UpdateWorkerHashrate records the rate of one worker's last batch.
func (m *MinerStats) UpdateWorkerHashrate(workerID int, hashesPerSecond float64) {
	if hashesPerSecond < 0 || math.IsNaN(hashesPerSecond) {
		hashesPerSecond = 0
	}
	m.mu.Lock()
	m.workerRates[workerID] = hashesPerSecond
	m.mu.Unlock()
}

func (m *MinerStats) AddHashes(n uint64) {
	m.totalHashes.Add(n)
}

func (m *MinerStats) ShareAccepted() {
	m.accepted.Add(1)
}

func (m *MinerStats) ShareRejected(reason string) {
	m.rejected.Add(1)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	m.mu.Lock()
	m.rejectReasons[reason]++
	m.mu.Unlock()
}

func (m *MinerStats) UpdateJob(jobID string) {
	m.mu.Lock()
	m.jobID = jobID
	m.mu.Unlock()
}

// UpdateActiveThreads also forgets per-worker rates of workers that no
// longer exist.
func (m *MinerStats) UpdateActiveThreads(n int) {
	m.activeThreads.Store(int32(n))
	m.mu.Lock()
	for id := range m.workerRates {
		if id >= n {
			delete(m.workerRates, id)
		}
	}
	m.mu.Unlock()
}

func (m *MinerStats) UpdateNetworkDifficulty(difficulty float64) {
	m.networkDiff.Store(math.Float64bits(difficulty))
}

func (m *MinerStats) UpdatePoolDifficulty(difficulty float64) {
	m.poolDiff.Store(math.Float64bits(difficulty))
}

func (m *MinerStats) UpdatePoolStatus(status string) {
	m.mu.Lock()
	m.poolStatus = status
	m.mu.Unlock()
}

// UpdateBestDifficulty records a worker's best hash if it ranks in the top
// bestShareCount entries.
func (m *MinerStats) UpdateBestDifficulty(workerID int, difficulty float64, hash string) {
	if difficulty <= bestDifficultyFloor {
		return
	}
	m.bestSharesMu.RLock()
	full := m.bestLen >= bestShareCount
	var worst float64
	if full {
		worst = m.bestShares[m.bestLen-1].Difficulty
	}
	m.bestSharesMu.RUnlock()
	if full && difficulty <= worst {
		return
	}

	share := BestShare{
		Worker:     workerLabel(workerID),
		Difficulty: difficulty,
		Timestamp:  time.Now().UTC(),
		Hash:       hash,
	}
	if !m.recordBestShare(share) {
		return
	}
	if share == m.BestShare() {
		logger.Info("new best difficulty", "kind", "success", "worker", share.Worker,
			"difficulty", formatDifficulty(difficulty))
	}
	m.queuePersist()
}

func workerLabel(id int) string {
	return fmt.Sprintf("cpu%d", id)
}

// recordBestShare inserts share into the sorted list and reports whether it
// was kept.
func (m *MinerStats) recordBestShare(share BestShare) bool {
	if share.Difficulty <= 0 {
		return false
	}
	m.bestSharesMu.Lock()
	defer m.bestSharesMu.Unlock()
	if m.bestLen >= bestShareCount && share.Difficulty <= m.bestShares[m.bestLen-1].Difficulty {
		return false
	}

	idx := sort.Search(m.bestLen, func(i int) bool {
		return share.Difficulty >= m.bestShares[i].Difficulty
	})
	end := m.bestLen
	if end >= bestShareCount {
		end = bestShareCount - 1
	}
	for i := end; i > idx; i-- {
		m.bestShares[i] = m.bestShares[i-1]
	}
	m.bestShares[idx] = share
	if m.bestLen < bestShareCount {
		m.bestLen++
	}
	return true
}

// SnapshotBestShares returns the best-share list sorted by descending difficulty.
func (m *MinerStats) SnapshotBestShares() []BestShare {
	m.bestSharesMu.RLock()
	defer m.bestSharesMu.RUnlock()
	if m.bestLen == 0 {
		return nil
	}
	out := make([]BestShare, m.bestLen)
	copy(out, m.bestShares[:m.bestLen])
	return out
}

// BestShare is the all-time best record, zero if none.
func (m *MinerStats) BestShare() BestShare {
	m.bestSharesMu.RLock()
	defer m.bestSharesMu.RUnlock()
	if m.bestLen == 0 {
		return BestShare{}
	}
	return m.bestShares[0]
}

// queuePersist hands the current list to the persistence goroutine. Only the
// newest pending snapshot is kept.
func (m *MinerStats) queuePersist() {
	if m.bestShareChan == nil {
		return
	}
	snapshot := m.SnapshotBestShares()
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	if m.closed {
		return
	}
	for {
		select {
		case m.bestShareChan <- snapshot:
			return
		default:
		}
		select {
		case <-m.bestShareChan:
		default:
		}
	}
}

func (m *MinerStats) bestShareWorker() {
	defer close(m.persistDone)
	for shares := range m.bestShareChan {
		if err := m.store.SaveBestShares(shares); err != nil {
			logger.Warn("persist best shares to sqlite", "error", err)
		}
	}
}

// Close flushes pending best shares and closes the store.
func (m *MinerStats) Close() error {
	if m.store == nil {
		return nil
	}
	var err error
	m.closeOnce.Do(func() {
		m.persistMu.Lock()
		m.closed = true
		close(m.bestShareChan)
		m.persistMu.Unlock()
		<-m.persistDone
		err = m.store.Close()
	})
	return err
}

func (m *MinerStats) averageHashrateLocked() float64 {
	if m.historyLen == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < m.historyLen; i++ {
		sum += m.history[i]
	}
	return sum / float64(m.historyLen)
}

func (m *MinerStats) Snapshot() StatsSnapshot {
	m.mu.RLock()
	reasons := make(map[string]uint64, len(m.rejectReasons))
	for k, v := range m.rejectReasons {
		reasons[k] = v
	}
	rates := make(map[int]float64, len(m.workerRates))
	for id, r := range m.workerRates {
		rates[id] = r
	}
	snap := StatsSnapshot{
		AverageHashrate: m.averageHashrateLocked(),
		RejectReasons:   reasons,
		WorkerHashrates: rates,
		JobID:           m.jobID,
		PoolStatus:      m.poolStatus,
		Uptime:          time.Since(m.start),
	}
	m.mu.RUnlock()

	snap.Hashrate = math.Float64frombits(m.hashrateBits.Load())
	snap.TotalHashes = m.totalHashes.Load()
	snap.Accepted = m.accepted.Load()
	snap.Rejected = m.rejected.Load()
	snap.NetworkDifficulty = math.Float64frombits(m.networkDiff.Load())
	snap.PoolDifficulty = math.Float64frombits(m.poolDiff.Load())
	snap.ActiveThreads = int(m.activeThreads.Load())
	snap.Best = m.BestShare()
	return snap
}
