package main

import "time"

const (
	maxNonce = uint32(0xffffffff)

	// Pool protocol.
	maxStratumMessageSize = 64 * 1024
	stratumWriteTimeout   = 30 * time.Second
	stratumDialTimeout    = 15 * time.Second
	// stratumReadTimeout bounds silence from the pool. Pools send a notify at
	// least every couple of minutes, so a longer gap means a dead socket.
	stratumReadTimeout  = 10 * time.Minute
	maxWorkerNameLen    = 256
	defaultConnectTries = 3
	connectRetryDelay   = 5 * time.Second
	reconnectDelay      = 1 * time.Second
	poolReconnectDelay  = 5 * time.Second

	// Mining.
	defaultNonceBatchSize = 1000
	workerErrorBackoff    = 1 * time.Second
	workerIdlePoll        = 100 * time.Millisecond
	workerStopTimeout     = 5 * time.Second
	hashrateInterval      = 5 * time.Second
	// hashrateDeviationLimit is how far the delta rate may drift from the
	// summed per-worker rates before the summed value is preferred.
	hashrateDeviationLimit = 0.5
	workerEventBuffer      = 256
	shareSubmitQueueSize   = 64
	hashrateHistorySize    = 60
	bestShareCount         = 12
	// bestDifficultyFloor is the noise floor below which a hash is never
	// reported as a new best.
	bestDifficultyFloor = 1.0
)
