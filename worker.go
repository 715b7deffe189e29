package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

var (
	errHashing        = errors.New("hashing failed")
	errRangeExhausted = errors.New("nonce range exhausted")
)

type workerState int32

const (
	workerIdle workerState = iota
	workerMining
	workerStopping
	workerStopped
)

func (s workerState) String() string {
	switch s {
	case workerIdle:
		return "idle"
	case workerMining:
		return "mining"
	case workerStopping:
		return "stopping"
	case workerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type workerSettings struct {
	batchSize    int
	yield        time.Duration
	nonceMode    string
	seed         int64
	errorBackoff time.Duration
}

func intensityYield(intensity string) time.Duration {
	switch intensity {
	case intensityLow:
		return 10 * time.Millisecond
	case intensityMedium:
		return time.Millisecond
	default:
		return 0
	}
}

func workerSettingsFromConfig(cfg Config) workerSettings {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	batch := cfg.NonceBatchSize
	if batch <= 0 {
		batch = defaultNonceBatchSize
	}
	return workerSettings{
		batchSize:    batch,
		yield:        intensityYield(cfg.Intensity),
		nonceMode:    cfg.NonceMode,
		seed:         seed,
		errorBackoff: workerErrorBackoff,
	}
}

// MinerWorker searches the nonce range of its current WorkItem. The engine
// replaces the item or its pool share target under mu; the worker snapshots
// both once per batch.
type MinerWorker struct {
	id       int
	settings workerSettings
	events   chan<- minerEvent
	// hashHeader is hashBlockHeader outside of tests.
	hashHeader func([]byte) ([32]byte, error)

	mu   sync.Mutex
	work *WorkItem

	state        atomic.Int32
	totalHashes  atomic.Uint64
	hashrateBits atomic.Uint64

	// Owned by the worker goroutine.
	rng        *rand.Rand
	exhausted  *WorkItem
	bestTarget [32]byte

	done chan struct{}
}

func newMinerWorker(id int, settings workerSettings, events chan<- minerEvent) *MinerWorker {
	if settings.batchSize <= 0 {
		settings.batchSize = defaultNonceBatchSize
	}
	w := &MinerWorker{
		id:         id,
		settings:   settings,
		events:     events,
		hashHeader: hashBlockHeader,
		rng:        rand.New(rand.NewPCG(uint64(settings.seed), uint64(id)+1)),
		bestTarget: maxTargetBytes,
		done:       make(chan struct{}),
	}
	w.state.Store(int32(workerIdle))
	return w
}

func (w *MinerWorker) State() workerState {
	return workerState(w.state.Load())
}

func (w *MinerWorker) TotalHashes() uint64 {
	return w.totalHashes.Load()
}

// Hashrate is the rate measured over the last completed batch.
func (w *MinerWorker) Hashrate() float64 {
	return math.Float64frombits(w.hashrateBits.Load())
}

func (w *MinerWorker) setWork(work *WorkItem) {
	w.mu.Lock()
	w.work = work
	w.mu.Unlock()
}

func (w *MinerWorker) currentWork() *WorkItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.work
}

// updatePoolShare changes the share target of the current item in place.
func (w *MinerWorker) updatePoolShare(target [32]byte, difficulty float64) {
	w.mu.Lock()
	if w.work != nil {
		w.work.PoolShareTarget = target
		w.work.PoolShareDifficulty = difficulty
	}
	w.mu.Unlock()
}

func (w *MinerWorker) snapshot() (*WorkItem, [32]byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.work == nil {
		return nil, [32]byte{}
	}
	return w.work, w.work.PoolShareTarget
}

func (w *MinerWorker) run(ctx context.Context) {
	defer close(w.done)
	defer w.state.Store(int32(workerStopped))

	for {
		if ctx.Err() != nil {
			w.state.Store(int32(workerStopping))
			return
		}
		work, shareTarget := w.snapshot()
		if work == nil || work == w.exhausted {
			if w.State() == workerMining {
				w.reportHashrate(0)
			}
			w.state.Store(int32(workerIdle))
			sleepCtx(ctx, workerIdlePoll)
			continue
		}
		w.state.Store(int32(workerMining))

		err := w.mineBatch(ctx, work, shareTarget)
		switch {
		case err == nil:
		case errors.Is(err, errRangeExhausted):
			logger.Info("nonce range exhausted, waiting for new work", "worker", w.id, "job", work.Job.JobID)
			w.exhausted = work
		case ctx.Err() != nil:
			continue
		default:
			logger.Error("worker batch failed", "worker", w.id, "error", err)
			sleepCtx(ctx, w.settings.errorBackoff)
			continue
		}
		if w.settings.yield > 0 {
			sleepCtx(ctx, w.settings.yield)
		}
	}
}

func (w *MinerWorker) nextNonce(work *WorkItem) (uint32, bool) {
	if w.settings.nonceMode == nonceModeSequential {
		return work.nextSequential()
	}
	return work.StartNonce + uint32(w.rng.Uint64N(work.rangeSize())), true
}

// mineBatch hashes up to batchSize nonces. Panics from the hashing path are
// turned into errHashing so the worker can back off and resume.
func (w *MinerWorker) mineBatch(ctx context.Context, work *WorkItem, shareTarget [32]byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", errHashing, r)
		}
	}()

	start := time.Now()
	var hashes uint64
	defer func() {
		w.recordBatch(hashes, time.Since(start))
	}()

	for i := 0; i < w.settings.batchSize; i++ {
		nonce, ok := w.nextNonce(work)
		if !ok {
			return errRangeExhausted
		}
		digest, herr := w.hashHeader(work.PrepareHeader(nonce))
		if herr != nil {
			return fmt.Errorf("%w: %v", errHashing, herr)
		}
		w.totalHashes.Add(1)
		hashes++

		hash := hashToBigEndian(digest)
		if isValidShare(hash, shareTarget) {
			evt := minerEvent{
				kind:       eventShareFound,
				workerID:   w.id,
				work:       work,
				nonce:      nonce,
				difficulty: hashDifficulty(hash),
				hash:       hash,
			}
			if !w.emit(ctx, evt) {
				return ctx.Err()
			}
		}
		if bytes.Compare(hash[:], w.bestTarget[:]) < 0 {
			w.bestTarget = hash
			evt := minerEvent{
				kind:       eventBestDifficulty,
				workerID:   w.id,
				work:       work,
				nonce:      nonce,
				difficulty: hashDifficulty(hash),
				hash:       hash,
			}
			if !w.emit(ctx, evt) {
				return ctx.Err()
			}
		}
	}
	return nil
}

func (w *MinerWorker) recordBatch(hashes uint64, elapsed time.Duration) {
	if hashes == 0 || elapsed <= 0 {
		return
	}
	w.reportHashrate(float64(hashes) / elapsed.Seconds())
}

// reportHashrate stores rate and offers it to the engine without blocking.
func (w *MinerWorker) reportHashrate(rate float64) {
	w.hashrateBits.Store(math.Float64bits(rate))
	select {
	case w.events <- minerEvent{kind: eventHashrate, workerID: w.id, difficulty: rate}:
	default:
	}
}

// emit delivers share and best-difficulty events; it only gives up when
// the worker is being stopped.
func (w *MinerWorker) emit(ctx context.Context, evt minerEvent) bool {
	select {
	case w.events <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

// wait blocks until run has returned or timeout elapses.
func (w *MinerWorker) wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.done:
		return true
	case <-timer.C:
		return false
	}
}

// sleepCtx sleeps for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
