package main

import (
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// resolveThreadCount maps the configured thread count onto a worker count;
// zero or negative means one worker per logical CPU.
func resolveThreadCount(threads int) int {
	if threads > 0 {
		return threads
	}
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// cpuFeatureSummary lists the instruction set extensions that matter for
// sha256-simd's dispatch.
func cpuFeatureSummary() string {
	var feats []string
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.SHA, "sha-ni"},
		{cpuid.AVX512F, "avx512"},
		{cpuid.AVX2, "avx2"},
		{cpuid.SSE4, "sse4"},
		{cpuid.ASIMD, "neon"},
	} {
		if cpuid.CPU.Supports(f.id) {
			feats = append(feats, f.name)
		}
	}
	if len(feats) == 0 {
		return "none"
	}
	return strings.Join(feats, ",")
}

func logCPUInfo() {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = runtime.GOARCH
	}
	logger.Info("cpu detected",
		"brand", brand,
		"physical_cores", cpuid.CPU.PhysicalCores,
		"logical_cores", cpuid.CPU.LogicalCores,
		"features", cpuFeatureSummary(),
		"sha256", sha256ImplementationName(),
	)
}
