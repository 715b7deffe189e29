package main

import (
	"context"
	"math"
	"time"
)

// chooseHashrate prefers the rate derived from the total hash counter, which
// includes batches that finished between samples, unless it disagrees with
// the summed per-worker rates by more than hashrateDeviationLimit.
func chooseHashrate(summed, delta float64) float64 {
	if summed <= 0 {
		return math.Max(delta, 0)
	}
	if math.Abs(delta-summed)/summed > hashrateDeviationLimit {
		return summed
	}
	return delta
}

func (e *MiningEngine) aggregate(ctx context.Context) {
	interval := e.hashrateInterval
	if interval <= 0 {
		interval = hashrateInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTotal := e.TotalHashes()
	lastAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			total := e.TotalHashes()
			elapsed := now.Sub(lastAt).Seconds()
			if elapsed <= 0 {
				continue
			}
			delta := total - lastTotal
			rate := chooseHashrate(e.summedHashrate(), float64(delta)/elapsed)
			e.stats.UpdateHashrate(rate)
			e.stats.AddHashes(delta)
			lastTotal, lastAt = total, now
		}
	}
}
