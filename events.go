package main

type minerEventKind int

const (
	eventShareFound minerEventKind = iota
	eventBestDifficulty
	eventHashrate
)

// minerEvent is sent from a worker goroutine to the engine relay.
type minerEvent struct {
	kind     minerEventKind
	workerID int
	work     *WorkItem
	nonce    uint32
	// difficulty is the hash difficulty for shares and bests, hashes per
	// second for hashrate updates.
	difficulty float64
	hash       [32]byte // big-endian
}

// statsSink receives everything the status output displays.
type statsSink interface {
	UpdateHashrate(hashesPerSecond float64)
	UpdateWorkerHashrate(workerID int, hashesPerSecond float64)
	AddHashes(n uint64)
	ShareAccepted()
	ShareRejected(reason string)
	UpdateJob(jobID string)
	UpdateActiveThreads(n int)
	UpdateBestDifficulty(workerID int, difficulty float64, hash string)
	UpdateNetworkDifficulty(difficulty float64)
	UpdatePoolDifficulty(difficulty float64)
	UpdatePoolStatus(status string)
}

// shareSubmitter is the pool side of a found share.
type shareSubmitter interface {
	SubmitShare(job *Job, nonce uint32) bool
}

// poolEventHandler is what the stratum session drives.
type poolEventHandler interface {
	OnJob(job *Job)
	OnPoolDifficulty(difficulty float64)
	OnShareResult(accepted bool, reason string)
	OnSessionState(state sessionState)
}
