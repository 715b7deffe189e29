//go:build !noavx

package main

import simdsha "github.com/minio/sha256-simd"

func init() {
	sha256Sum = simdsha.Sum256
}

// sha256ImplementationName is reported in the startup banner.
func sha256ImplementationName() string {
	return "sha256-simd"
}
