package main

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hako/durafmt"
)

func formatHashrate(h float64) string {
	if h <= 0 || math.IsNaN(h) {
		return "0.000 H/s"
	}
	units := []string{"H/s", "KH/s", "MH/s", "GH/s", "TH/s", "PH/s"}
	unit := units[0]
	val := h
	for i := 0; i < len(units)-1 && val >= 1000; i++ {
		val /= 1000
		unit = units[i+1]
	}
	return fmt.Sprintf("%.3f %s", val, unit)
}

// formatDifficulty keeps small values exact enough to compare against a
// pool difficulty and abbreviates large ones.
func formatDifficulty(d float64) string {
	switch {
	case d <= 0 || math.IsNaN(d):
		return "0"
	case d < 1_000:
		return strconv.FormatFloat(d, 'f', 3, 64)
	case d < 1_000_000:
		return fmt.Sprintf("%.0f", math.Round(d))
	case d >= 1_000_000_000_000_000:
		return fmt.Sprintf("%.2fE", d/1_000_000_000_000_000.0)
	case d >= 1_000_000_000_000:
		return fmt.Sprintf("%.2fT", d/1_000_000_000_000.0)
	case d >= 1_000_000_000:
		return fmt.Sprintf("%.2fG", d/1_000_000_000.0)
	default:
		return fmt.Sprintf("%.2fM", d/1_000_000.0)
	}
}

func formatUptime(d time.Duration) string {
	if d < time.Second {
		return "0 seconds"
	}
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(2).String()
}

// formatWorkerHashrates lists per-worker rates in worker order.
func formatWorkerHashrates(rates map[int]float64) string {
	ids := make([]int, 0, len(rates))
	for id := range rates {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = workerLabel(id) + "=" + formatHashrate(rates[id])
	}
	return strings.Join(parts, ", ")
}

// statusAttrs flattens a snapshot into logger key/value pairs.
func statusAttrs(s StatsSnapshot) []any {
	attrs := []any{
		"hashrate", formatHashrate(s.Hashrate),
		"avg", formatHashrate(s.AverageHashrate),
		"hashes", s.TotalHashes,
		"accepted", s.Accepted,
		"rejected", s.Rejected,
		"threads", s.ActiveThreads,
		"pool", s.PoolStatus,
		"pool_diff", formatDifficulty(s.PoolDifficulty),
		"network_diff", formatDifficulty(s.NetworkDifficulty),
	}
	if len(s.WorkerHashrates) > 0 {
		attrs = append(attrs, "workers", formatWorkerHashrates(s.WorkerHashrates))
	}
	if s.JobID != "" {
		attrs = append(attrs, "job", s.JobID)
	}
	if s.Best.Difficulty > 0 {
		attrs = append(attrs, "best", formatDifficulty(s.Best.Difficulty),
			"best_at", s.Best.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	return append(attrs, "uptime", formatUptime(s.Uptime))
}

// runStatusReporter logs a status line every interval until ctx is done.
func runStatusReporter(ctx context.Context, stats *MinerStats, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("status", statusAttrs(stats.Snapshot())...)
		}
	}
}

// logFinalStats prints the session summary on shutdown.
func logFinalStats(stats *MinerStats) {
	s := stats.Snapshot()
	logger.Info("session summary", statusAttrs(s)...)
	for reason, n := range s.RejectReasons {
		logger.Info("rejected shares", "reason", reason, "count", n)
	}
}
