package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	debugpkg "runtime/debug"
	"strings"
	"syscall"
	"time"
)

func main() {
	// Capture unexpected panics to panic.log with a stack trace.
	defer func() {
		if r := recover(); r != nil {
			if f, err := os.OpenFile("panic.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				defer f.Close()
				ts := time.Now().UTC().Format(time.RFC3339)
				fmt.Fprintf(f, "[%s] panic: %v\nversion=%s\n%s\n\n", ts, r, minerVersion, debugpkg.Stack())
			}
			panic(r)
		}
	}()

	configFlag := flag.String("config", "", "path to config.toml (default data/config/config.toml)")
	networkFlag := flag.String("network", "", "bitcoin network: mainnet, testnet, signet, regtest")
	threadsFlag := flag.Int("threads", -1, "worker threads, 0 = one per CPU")
	stdoutLogFlag := flag.Bool("stdout", false, "mirror logs to stdout")
	rewriteConfigFlag := flag.Bool("rewrite-config", false, "rewrite config on startup")
	logLevelFlag := flag.String("log-level", "", "override log level (debug/info/warn/error)")
	flag.Parse()

	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = defaultConfigPath()
	}
	cfg, found, err := loadConfig(cfgPath)
	if err != nil {
		fatal("config", err, "path", cfgPath)
	}
	if !found {
		example := ensureExampleConfig(cfg.DataDir)
		logger.Error("config file not found", "path", cfgPath, "example", example,
			"hint", "copy the example to the config path and set [pool].wallet")
		logger.Stop()
		os.Exit(1)
	}

	if v := strings.ToLower(strings.TrimSpace(*networkFlag)); v != "" {
		cfg.Chain = v
	}
	if *threadsFlag >= 0 {
		cfg.Threads = *threadsFlag
	}
	if *stdoutLogFlag {
		cfg.LogStdout = true
	}
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}
	if err := validateConfig(cfg); err != nil {
		fatal("config", err)
	}
	if err := configureLogging(cfg); err != nil {
		fatal("log level", err)
	}
	if *rewriteConfigFlag {
		if err := rewriteConfigFile(cfgPath, cfg); err != nil {
			logger.Warn("rewrite config failed", "path", cfgPath, "error", err)
		} else {
			logger.Info("config rewritten", "path", cfgPath)
		}
	}

	logger.Info("starting miner", "version", minerVersion, "pool", cfg.PoolAddr(),
		"user", cfg.StratumUsername(), "chain", cfg.Chain)
	logCPUInfo()

	var store bestShareStore
	dbPath := stateDBPath(cfg.DataDir)
	if s, err := openBestShareStore(dbPath); err != nil {
		logger.Warn("state db unavailable, best shares will not persist", "path", dbPath, "error", err)
	} else {
		store = s
	}
	stats := newMinerStats(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := newMiningEngine(cfg, stats)
	client := newStratumClient(cfg, engine)
	engine.SetSubmitter(client)
	if err := engine.Start(ctx, cfg.Threads); err != nil {
		fatal("mining engine", err)
	}

	statusCtx, stopStatus := context.WithCancel(ctx)
	go runStatusReporter(statusCtx, stats, time.Duration(cfg.StatusRefreshSeconds)*time.Second)

	exitCode := 0
	runErr := client.Run(ctx)
	switch {
	case runErr == nil || errors.Is(runErr, context.Canceled):
		logger.Info("shutdown requested")
	case errors.Is(runErr, errAuthorization):
		logger.Error("pool rejected worker authorization", "user", cfg.StratumUsername(), "error", runErr)
		exitCode = 1
	case errors.Is(runErr, errConnectAttemptsExhausted):
		logger.Error("could not connect to pool", "pool", cfg.PoolAddr(), "error", runErr)
		exitCode = 1
	default:
		logger.Error("pool session ended", "error", runErr)
		exitCode = 1
	}

	stopStatus()
	engine.Stop()
	logFinalStats(stats)
	if err := stats.Close(); err != nil {
		logger.Warn("close state db", "error", err)
	}
	logger.Stop()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
