package main

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/remeh/sizedwaitgroup"
)

var errEngineRunning = errors.New("mining engine already running")

type nonceRange struct {
	start uint32
	end   uint32
}

// partitionNonceRange splits [0, 2^32) into n contiguous, disjoint ranges.
// The last range absorbs the remainder.
func partitionNonceRange(n int) []nonceRange {
	if n <= 0 {
		return nil
	}
	const space = uint64(1) << 32
	size := space / uint64(n)
	out := make([]nonceRange, n)
	for i := range out {
		start := uint64(i) * size
		end := start + size - 1
		if i == n-1 {
			end = space - 1
		}
		out[i] = nonceRange{start: uint32(start), end: uint32(end)}
	}
	return out
}

// MiningEngine owns the worker goroutines. It turns jobs into per-worker
// work items, keeps the pool share target in sync and relays worker events
// to statistics and the share submitter.
type MiningEngine struct {
	opts     workOptions
	settings workerSettings
	stats    statsSink
	// holdUntilDifficulty drops shares found before the first
	// mining.set_difficulty.
	holdUntilDifficulty bool
	hashrateInterval    time.Duration

	submitter shareSubmitter
	queue     *shareSubmitQueue
	events    chan minerEvent

	mu          sync.Mutex
	workers     []*MinerWorker
	job         *Job
	base        *WorkItem
	poolTarget  [32]byte
	poolDiff    float64
	poolDiffSet bool
	// cleanGen is bumped by every clean job; shares from items of an older
	// generation are stale.
	cleanGen uint64

	running atomic.Bool
	cancel  context.CancelFunc
	swg     sizedwaitgroup.SizedWaitGroup
	aux     sync.WaitGroup
}

func newMiningEngine(cfg Config, stats statsSink) *MiningEngine {
	return &MiningEngine{
		opts:                cfg.workOptions(),
		settings:            workerSettingsFromConfig(cfg),
		stats:               stats,
		holdUntilDifficulty: cfg.RequirePoolDifficulty,
		hashrateInterval:    hashrateInterval,
		events:              make(chan minerEvent, workerEventBuffer),
		poolTarget:          maxTargetBytes,
		poolDiff:            1,
	}
}

// SetSubmitter must be called before Start.
func (e *MiningEngine) SetSubmitter(s shareSubmitter) {
	e.submitter = s
}

// Start launches threads workers (0 = one per CPU) plus the relay and the
// hashrate aggregator. Workers idle until SetWork delivers a job.
func (e *MiningEngine) Start(ctx context.Context, threads int) error {
	if !e.running.CompareAndSwap(false, true) {
		return errEngineRunning
	}
	threads = resolveThreadCount(threads)
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.mu.Lock()
	e.workers = make([]*MinerWorker, threads)
	for i := range e.workers {
		e.workers[i] = newMinerWorker(i, e.settings, e.events)
	}
	workers := e.workers
	base := e.base
	e.mu.Unlock()
	if base != nil {
		e.distribute(base)
	}

	e.swg = sizedwaitgroup.New(threads)
	for _, w := range workers {
		e.swg.Add()
		go func(w *MinerWorker) {
			defer e.swg.Done()
			w.run(ctx)
		}(w)
	}

	if e.submitter != nil {
		e.queue = newShareSubmitQueue(e.submitter, shareSubmitQueueSize)
		e.aux.Add(1)
		go func() {
			defer e.aux.Done()
			e.queue.run(ctx)
		}()
	}
	e.aux.Add(2)
	go func() {
		defer e.aux.Done()
		e.relay(ctx)
	}()
	go func() {
		defer e.aux.Done()
		e.aggregate(ctx)
	}()

	e.stats.UpdateActiveThreads(threads)
	logger.Info("mining engine started", "threads", threads, "batch", e.settings.batchSize,
		"nonce_mode", e.settings.nonceMode, "sha256", sha256ImplementationName())
	return nil
}

// Stop cancels all workers and waits up to workerStopTimeout for them.
func (e *MiningEngine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.swg.Wait()
		e.aux.Wait()
		close(done)
	}()
	timer := time.NewTimer(workerStopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		logger.Info("mining engine stopped", "hashes", e.TotalHashes())
	case <-timer.C:
		logger.Warn("mining engine stop timed out", "timeout", workerStopTimeout)
	}
	e.stats.UpdateActiveThreads(0)
}

// SetWork replaces the current job on every worker. The merkle root and
// target are computed once and each worker gets its own copy and range.
func (e *MiningEngine) SetWork(job *Job) error {
	base, err := NewWorkItem(job, e.opts)
	if err != nil {
		logger.Error("discarding unusable job", "job", job.JobID, "error", err)
		return err
	}
	e.mu.Lock()
	e.job = job
	e.base = base
	if job.CleanJobs {
		e.cleanGen++
	}
	base.cleanGen = e.cleanGen
	if e.poolDiffSet {
		base.PoolShareTarget = e.poolTarget
		base.PoolShareDifficulty = e.poolDiff
	}
	e.mu.Unlock()
	e.distribute(base)

	e.stats.UpdateJob(job.JobID)
	e.stats.UpdateNetworkDifficulty(base.Difficulty)
	logger.Info("new job", "kind", "mining", "job", job.JobID, "clean", job.CleanJobs,
		"network_diff", formatDifficulty(base.Difficulty), "merkle_root", base.MerkleRootHex())
	return nil
}

func (e *MiningEngine) distribute(base *WorkItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.base != base {
		return
	}
	ranges := partitionNonceRange(len(e.workers))
	for i, w := range e.workers {
		w.setWork(base.withRange(ranges[i].start, ranges[i].end))
	}
}

// UpdatePoolShareDifficulty applies mining.set_difficulty to the current
// and all future work items.
func (e *MiningEngine) UpdatePoolShareDifficulty(difficulty float64) bool {
	target, ok := targetFromDifficulty(difficulty)
	if !ok {
		logger.Warn("ignoring invalid pool difficulty", "difficulty", difficulty)
		return false
	}
	e.mu.Lock()
	e.poolTarget = target
	e.poolDiff = difficulty
	e.poolDiffSet = true
	if e.base != nil {
		e.base.PoolShareTarget = target
		e.base.PoolShareDifficulty = difficulty
	}
	for _, w := range e.workers {
		w.updatePoolShare(target, difficulty)
	}
	e.mu.Unlock()

	e.stats.UpdatePoolDifficulty(difficulty)
	logger.Info("pool difficulty set", "difficulty", formatDifficulty(difficulty))
	return true
}

// HandleShareResult is the only path into the accepted/rejected counters.
func (e *MiningEngine) HandleShareResult(accepted bool, reason string) {
	if accepted {
		e.stats.ShareAccepted()
		return
	}
	e.stats.ShareRejected(reason)
}

func (e *MiningEngine) TotalHashes() uint64 {
	var total uint64
	for _, w := range e.workerList() {
		total += w.TotalHashes()
	}
	return total
}

func (e *MiningEngine) summedHashrate() float64 {
	var sum float64
	for _, w := range e.workerList() {
		sum += w.Hashrate()
	}
	return sum
}

func (e *MiningEngine) workerList() []*MinerWorker {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workers
}

func (e *MiningEngine) relay(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-e.events:
			e.handleEvent(evt)
		}
	}
}

func (e *MiningEngine) handleEvent(evt minerEvent) {
	switch evt.kind {
	case eventShareFound:
		e.handleShare(evt)
	case eventBestDifficulty:
		hashHex := hex.EncodeToString(evt.hash[:])
		e.stats.UpdateBestDifficulty(evt.workerID, evt.difficulty, hashHex)
		logger.Debug("worker best difficulty", "worker", evt.workerID, "difficulty", formatDifficulty(evt.difficulty))
	case eventHashrate:
		e.stats.UpdateWorkerHashrate(evt.workerID, evt.difficulty)
	}
}

func (e *MiningEngine) handleShare(evt minerEvent) {
	job := evt.work.Job
	e.mu.Lock()
	awaiting := e.holdUntilDifficulty && !e.poolDiffSet
	current := e.job
	stale := evt.work.cleanGen < e.cleanGen
	e.mu.Unlock()

	if awaiting {
		logger.Debug("share held until pool difficulty is known", "job", job.JobID, "worker", evt.workerID)
		return
	}
	if stale {
		logger.Debug("dropping share for replaced job", "job", job.JobID, "current", current.JobID)
		return
	}
	if evt.work.MeetsNetworkTarget(evt.hash) {
		logger.Info("block candidate found", "kind", "success", "job", job.JobID,
			"nonce", uint32ToBEHex(evt.nonce), "hash", hex.EncodeToString(evt.hash[:]))
	}
	logger.Info("share found", "kind", "mining", "job", job.JobID, "worker", evt.workerID,
		"nonce", uint32ToBEHex(evt.nonce), "difficulty", formatDifficulty(evt.difficulty))
	if e.queue == nil {
		return
	}
	e.queue.submit(shareTask{
		job:        job,
		nonce:      evt.nonce,
		workerID:   evt.workerID,
		difficulty: evt.difficulty,
		foundAt:    time.Now(),
	})
}
