package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

func withPrependedTOMLComments(data []byte, parts ...[]byte) []byte {
	total := len(data)
	for _, part := range parts {
		total += len(part)
	}
	out := make([]byte, 0, total)
	for _, part := range parts {
		out = append(out, part...)
	}
	return append(out, data...)
}

func configDocComments() []byte {
	return []byte(`# Key notes
# - [pool].host / port: stratum endpoint, without a stratum+tcp:// prefix.
# - [pool].wallet: payout address; the pool username is wallet.worker_name.
# - [pool].validate_wallet: check the wallet against [network].chain before connecting.
# - [mining].threads: worker goroutines, 0 = one per CPU.
# - [mining].intensity: high never yields, medium and low pause between batches.
# - [mining].nonce_mode: random (lottery) or sequential search inside each range.
# - [mining].merkle_mode: tree (pair all leaves) or branch (stratum merkle path).
# - [mining].prevhash_word_swap: decode prevhash in stratum word order.
# - [mining].require_pool_difficulty: hold shares until mining.set_difficulty arrives.
# - [logging].level: debug, info, warn, error. net_debug logs raw stratum lines.
#
`)
}

func exampleConfigBytes() []byte {
	cfg := defaultConfig()
	cfg.Wallet = "YOUR_BITCOIN_ADDRESS_HERE"
	data, err := toml.Marshal(buildBaseFileConfig(cfg))
	if err != nil {
		logger.Warn("encode config example failed", "error", err)
		return nil
	}
	header := fmt.Appendf(nil, "# Generated %s example config (copy to config.toml and edit)\n\n", minerSoftwareName)
	return withPrependedTOMLComments(data, header, configDocComments())
}

// ensureExampleConfig writes <dataDir>/config/examples/config.toml.example
// and returns its path.
func ensureExampleConfig(dataDir string) string {
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	dir := filepath.Join(dataDir, "config", "examples")
	path := filepath.Join(dir, "config.toml.example")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("create examples directory failed", "dir", dir, "error", err)
		return path
	}
	if data := exampleConfigBytes(); len(data) > 0 {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			logger.Warn("write example config failed", "path", path, "error", err)
		}
	}
	return path
}

// rewriteConfigFile persists cfg atomically, keeping the previous file as
// path.bak.
func rewriteConfigFile(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	data, err := toml.Marshal(buildBaseFileConfig(cfg))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	header := fmt.Appendf(nil, "# %s config.toml\n# Rewritten by -rewrite-config; the previous file is kept as .bak.\n#\n", minerSoftwareName)
	data = withPrependedTOMLComments(data, header, configDocComments())

	tmpFile, err := os.CreateTemp(dir, "config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmpFile.Name()
	removeTemp := true
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if removeTemp {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp config: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	bakPath := path + ".bak"
	if fileExists(path) {
		if err := os.Remove(bakPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", bakPath, err)
		}
		if err := os.Rename(path, bakPath); err != nil {
			return fmt.Errorf("rename %s to %s: %w", path, bakPath, err)
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}
	removeTemp = false
	return nil
}
