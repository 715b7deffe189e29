package main

// File layout of config.toml. Pointer fields distinguish "unset" from an
// explicit zero/false so defaults survive partial files.

type poolConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Wallet          string `toml:"wallet"`
	WorkerName      string `toml:"worker_name"`
	Password        string `toml:"password"`
	UserAgent       string `toml:"user_agent"`
	ValidateWallet  *bool  `toml:"validate_wallet"`
	ConnectAttempts *int   `toml:"connect_attempts"`
}

type miningConfig struct {
	Threads               *int   `toml:"threads"`
	Intensity             string `toml:"intensity"`
	NonceBatchSize        int    `toml:"nonce_batch_size"`
	NonceMode             string `toml:"nonce_mode"`
	RandomSeed            *int64 `toml:"random_seed"`
	MerkleMode            string `toml:"merkle_mode"`
	PrevHashWordSwap      *bool  `toml:"prevhash_word_swap"`
	RequirePoolDifficulty *bool  `toml:"require_pool_difficulty"`
}

type networkConfig struct {
	Chain string `toml:"chain"`
}

type loggingConfig struct {
	Level    string `toml:"level"`
	File     string `toml:"file"`
	Stdout   *bool  `toml:"stdout"`
	NetDebug *bool  `toml:"net_debug"`
}

type statusConfig struct {
	RefreshSeconds int `toml:"refresh_seconds"`
}

type stateConfig struct {
	DataDir string `toml:"data_dir"`
}

type baseFileConfig struct {
	Pool    poolConfig    `toml:"pool"`
	Mining  miningConfig  `toml:"mining"`
	Network networkConfig `toml:"network"`
	Logging loggingConfig `toml:"logging"`
	Status  statusConfig  `toml:"status"`
	State   stateConfig   `toml:"state"`
}

func buildBaseFileConfig(cfg Config) baseFileConfig {
	return baseFileConfig{
		Pool: poolConfig{
			Host:            cfg.PoolHost,
			Port:            cfg.PoolPort,
			Wallet:          cfg.Wallet,
			WorkerName:      cfg.WorkerName,
			Password:        cfg.PoolPassword,
			UserAgent:       cfg.UserAgent,
			ValidateWallet:  boolPtr(cfg.ValidateWallet),
			ConnectAttempts: intPtr(cfg.ConnectAttempts),
		},
		Mining: miningConfig{
			Threads:               intPtr(cfg.Threads),
			Intensity:             cfg.Intensity,
			NonceBatchSize:        cfg.NonceBatchSize,
			NonceMode:             cfg.NonceMode,
			RandomSeed:            int64Ptr(cfg.RandomSeed),
			MerkleMode:            cfg.MerkleMode,
			PrevHashWordSwap:      boolPtr(cfg.PrevHashWordSwap),
			RequirePoolDifficulty: boolPtr(cfg.RequirePoolDifficulty),
		},
		Network: networkConfig{Chain: cfg.Chain},
		Logging: loggingConfig{
			Level:    cfg.LogLevel,
			File:     cfg.LogFile,
			Stdout:   boolPtr(cfg.LogStdout),
			NetDebug: boolPtr(cfg.LogNetDebug),
		},
		Status: statusConfig{RefreshSeconds: cfg.StatusRefreshSeconds},
		State:  stateConfig{DataDir: cfg.DataDir},
	}
}
