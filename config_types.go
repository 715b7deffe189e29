package main

import (
	"net"
	"strconv"
	"strings"
)

const (
	intensityLow    = "low"
	intensityMedium = "medium"
	intensityHigh   = "high"

	nonceModeRandom     = "random"
	nonceModeSequential = "sequential"
)

type Config struct {
	// Pool connection.
	PoolHost       string
	PoolPort       int
	Wallet         string
	WorkerName     string
	PoolPassword   string
	UserAgent      string
	ValidateWallet bool
	// ConnectAttempts bounds the initial connection; reconnects after a
	// session was established are unbounded.
	ConnectAttempts int

	// Mining.
	Threads               int // 0 = one per CPU
	Intensity             string
	NonceBatchSize        int
	NonceMode             string
	RandomSeed            int64 // 0 = seeded from the clock
	MerkleMode            string
	PrevHashWordSwap      bool
	RequirePoolDifficulty bool // hold shares until the first mining.set_difficulty

	// Network used for wallet validation.
	Chain string

	// Logging.
	LogLevel    string
	LogFile     string
	LogStdout   bool
	LogNetDebug bool

	// Status output.
	StatusRefreshSeconds int

	// Local state (best shares).
	DataDir string
}

// PoolAddr is host:port for net.Dial.
func (cfg Config) PoolAddr() string {
	return net.JoinHostPort(cfg.PoolHost, strconv.Itoa(cfg.PoolPort))
}

// StratumUsername is the identity sent in mining.authorize and
// mining.submit: wallet or wallet.worker.
func (cfg Config) StratumUsername() string {
	worker := strings.TrimSpace(cfg.WorkerName)
	if worker == "" {
		return cfg.Wallet
	}
	return cfg.Wallet + "." + worker
}

func (cfg Config) workOptions() workOptions {
	return workOptions{
		MerkleMode:       cfg.MerkleMode,
		PrevHashWordSwap: cfg.PrevHashWordSwap,
	}
}
