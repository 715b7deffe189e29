package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.PoolHost) == "" {
		return fmt.Errorf("pool host is required")
	}
	if strings.Contains(cfg.PoolHost, ":") && net.ParseIP(cfg.PoolHost) == nil {
		return fmt.Errorf("pool host %q must not include a port; use pool.port", cfg.PoolHost)
	}
	if cfg.PoolPort <= 0 || cfg.PoolPort > 65535 {
		return fmt.Errorf("pool port must be 1-65535, got %d", cfg.PoolPort)
	}
	if cfg.Wallet == "" {
		return fmt.Errorf("pool wallet is required")
	}
	if len(cfg.StratumUsername()) > maxWorkerNameLen {
		return fmt.Errorf("wallet plus worker name exceeds %d characters", maxWorkerNameLen)
	}
	if cfg.ValidateWallet {
		if err := validateWalletAddress(cfg.Wallet, cfg.Chain); err != nil {
			return err
		}
	}
	if cfg.ConnectAttempts <= 0 {
		return fmt.Errorf("connect_attempts must be > 0, got %d", cfg.ConnectAttempts)
	}
	if cfg.Threads < 0 {
		return fmt.Errorf("threads cannot be negative")
	}
	if cfg.NonceBatchSize <= 0 {
		return fmt.Errorf("nonce_batch_size must be > 0, got %d", cfg.NonceBatchSize)
	}
	switch cfg.Intensity {
	case intensityLow, intensityMedium, intensityHigh:
	default:
		return fmt.Errorf("intensity must be low, medium or high, got %q", cfg.Intensity)
	}
	switch cfg.NonceMode {
	case nonceModeRandom, nonceModeSequential:
	default:
		return fmt.Errorf("nonce_mode must be random or sequential, got %q", cfg.NonceMode)
	}
	switch cfg.MerkleMode {
	case merkleModeTree, merkleModeBranch:
	default:
		return fmt.Errorf("merkle_mode must be tree or branch, got %q", cfg.MerkleMode)
	}
	if _, err := chainParams(cfg.Chain); err != nil {
		return err
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.StatusRefreshSeconds < 0 {
		return fmt.Errorf("status refresh_seconds cannot be negative")
	}
	return nil
}

func chainParams(chain string) (*chaincfg.Params, error) {
	switch strings.ToLower(chain) {
	case "", "mainnet", "main":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown chain %q", chain)
	}
}

// validateWalletAddress checks that the solo payout address decodes for the
// configured chain. Solo pools pay the block reward to this address.
func validateWalletAddress(addr, chain string) error {
	params, err := chainParams(chain)
	if err != nil {
		return err
	}
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return fmt.Errorf("wallet %q is not a valid %s address: %w", addr, params.Name, err)
	}
	if !decoded.IsForNet(params) {
		return fmt.Errorf("wallet %q is not a %s address", addr, params.Name)
	}
	return nil
}
