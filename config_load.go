package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml"
)

// loadConfig reads path on top of defaultConfig. found is false when the
// file does not exist; the returned config is then the defaults.
func loadConfig(path string) (cfg Config, found bool, err error) {
	cfg = defaultConfig()
	if path == "" {
		path = defaultConfigPath()
	}
	fc, ok, err := loadTOMLFile[baseFileConfig](path)
	if err != nil {
		return cfg, ok, err
	}
	if !ok {
		return cfg, false, nil
	}
	applyBaseConfig(&cfg, *fc)
	return cfg, true, nil
}

func loadTOMLFile[T any](path string) (*T, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg T
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, true, nil
}

func applyBaseConfig(cfg *Config, fc baseFileConfig) {
	if v := strings.TrimSpace(fc.Pool.Host); v != "" {
		cfg.PoolHost = normalizePoolHost(v)
	}
	if fc.Pool.Port != 0 {
		cfg.PoolPort = fc.Pool.Port
	}
	cfg.Wallet = strings.TrimSpace(fc.Pool.Wallet)
	if v := strings.TrimSpace(fc.Pool.WorkerName); v != "" {
		cfg.WorkerName = v
	}
	if fc.Pool.Password != "" {
		cfg.PoolPassword = fc.Pool.Password
	}
	if v := strings.TrimSpace(fc.Pool.UserAgent); v != "" {
		cfg.UserAgent = v
	}
	if fc.Pool.ValidateWallet != nil {
		cfg.ValidateWallet = *fc.Pool.ValidateWallet
	}
	if fc.Pool.ConnectAttempts != nil {
		cfg.ConnectAttempts = *fc.Pool.ConnectAttempts
	}

	if fc.Mining.Threads != nil {
		cfg.Threads = *fc.Mining.Threads
	}
	if v := strings.ToLower(strings.TrimSpace(fc.Mining.Intensity)); v != "" {
		cfg.Intensity = v
	}
	if fc.Mining.NonceBatchSize != 0 {
		cfg.NonceBatchSize = fc.Mining.NonceBatchSize
	}
	if v := strings.ToLower(strings.TrimSpace(fc.Mining.NonceMode)); v != "" {
		cfg.NonceMode = v
	}
	if fc.Mining.RandomSeed != nil {
		cfg.RandomSeed = *fc.Mining.RandomSeed
	}
	if v := strings.ToLower(strings.TrimSpace(fc.Mining.MerkleMode)); v != "" {
		cfg.MerkleMode = v
	}
	if fc.Mining.PrevHashWordSwap != nil {
		cfg.PrevHashWordSwap = *fc.Mining.PrevHashWordSwap
	}
	if fc.Mining.RequirePoolDifficulty != nil {
		cfg.RequirePoolDifficulty = *fc.Mining.RequirePoolDifficulty
	}

	if v := strings.ToLower(strings.TrimSpace(fc.Network.Chain)); v != "" {
		cfg.Chain = v
	}

	if v := strings.TrimSpace(fc.Logging.Level); v != "" {
		cfg.LogLevel = v
	}
	if fc.Logging.File != "" {
		cfg.LogFile = strings.TrimSpace(fc.Logging.File)
	}
	if fc.Logging.Stdout != nil {
		cfg.LogStdout = *fc.Logging.Stdout
	}
	if fc.Logging.NetDebug != nil {
		cfg.LogNetDebug = *fc.Logging.NetDebug
	}

	if fc.Status.RefreshSeconds != 0 {
		cfg.StatusRefreshSeconds = fc.Status.RefreshSeconds
	}
	if v := strings.TrimSpace(fc.State.DataDir); v != "" {
		cfg.DataDir = v
	}
}

// normalizePoolHost strips a stratum+tcp:// scheme, any trailing slash and
// IPv6 brackets, which people paste straight from pool web pages.
func normalizePoolHost(host string) string {
	for _, prefix := range []string{"stratum+tcp://", "stratum://", "tcp://"} {
		if strings.HasPrefix(strings.ToLower(host), prefix) {
			host = host[len(prefix):]
			break
		}
	}
	host = strings.TrimSuffix(host, "/")
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	return host
}
