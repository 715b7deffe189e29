package main

import "path/filepath"

const (
	minerSoftwareName = "goMiner"
	minerVersion      = "0.3.1"

	defaultPoolHost       = "solo.ckpool.org"
	defaultPoolPort       = 3333
	defaultWorkerName     = "miner01"
	defaultPoolPassword   = "x"
	defaultChain          = "mainnet"
	defaultDataDir        = "data"
	defaultStatusRefresh  = 5
	defaultLogFileName    = "miner.log"
	defaultBestShareStore = "state.db"
)

func defaultUserAgent() string {
	return minerSoftwareName + "/" + minerVersion
}

func defaultConfig() Config {
	return Config{
		PoolHost:              defaultPoolHost,
		PoolPort:              defaultPoolPort,
		WorkerName:            defaultWorkerName,
		PoolPassword:          defaultPoolPassword,
		UserAgent:             defaultUserAgent(),
		ValidateWallet:        true,
		ConnectAttempts:       defaultConnectTries,
		Threads:               0,
		Intensity:             intensityHigh,
		NonceBatchSize:        defaultNonceBatchSize,
		NonceMode:             nonceModeRandom,
		MerkleMode:            merkleModeTree,
		RequirePoolDifficulty: true,
		Chain:                 defaultChain,
		LogLevel:              "info",
		LogFile:               filepath.Join(defaultDataDir, "logs", defaultLogFileName),
		LogStdout:             true,
		StatusRefreshSeconds:  defaultStatusRefresh,
		DataDir:               defaultDataDir,
	}
}

func defaultConfigPath() string {
	return filepath.Join(defaultDataDir, "config", "config.toml")
}

func stateDBPath(dataDir string) string {
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	return filepath.Join(dataDir, "state", defaultBestShareStore)
}
