package main

import (
	"context"
	"time"
)

type shareTask struct {
	job        *Job
	nonce      uint32
	workerID   int
	difficulty float64
	foundAt    time.Time
}

// shareSubmitQueue hands found shares to the pool connection on its own
// goroutine so the engine relay never waits on the socket. A single
// consumer keeps submissions in the order they were found.
type shareSubmitQueue struct {
	tasks     chan shareTask
	submitter shareSubmitter
	done      chan struct{}
}

func newShareSubmitQueue(submitter shareSubmitter, depth int) *shareSubmitQueue {
	if depth <= 0 {
		depth = shareSubmitQueueSize
	}
	return &shareSubmitQueue{
		tasks:     make(chan shareTask, depth),
		submitter: submitter,
		done:      make(chan struct{}),
	}
}

// submit enqueues a share. When the queue is full the share is dropped and
// logged; a backlog that deep means the pool connection is gone.
func (q *shareSubmitQueue) submit(task shareTask) bool {
	select {
	case q.tasks <- task:
		return true
	default:
		logger.Warn("share submit queue full, dropping share", "job", task.job.JobID, "worker", task.workerID)
		return false
	}
}

func (q *shareSubmitQueue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.process(task)
		}
	}
}

func (q *shareSubmitQueue) process(t shareTask) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("share submit panic", "worker", t.workerID, "error", r)
		}
	}()
	logger.Debug("submitting share", "job", t.job.JobID, "worker", t.workerID,
		"difficulty", formatDifficulty(t.difficulty), "queued", time.Since(t.foundAt))
	if !q.submitter.SubmitShare(t.job, t.nonce) {
		logger.Warn("share not submitted", "job", t.job.JobID, "worker", t.workerID,
			"nonce", uint32ToBEHex(t.nonce), "reason", "not connected or write failed")
	}
}
