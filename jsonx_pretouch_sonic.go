//go:build !nojsonsimd

package main

import (
	"reflect"

	"github.com/bytedance/sonic"
)

func init() {
	// Pretouch the stratum message types so the first pool message does not
	// pay for sonic's codegen. Failures only cost that first-hit latency.
	_ = sonic.Pretouch(reflect.TypeOf(stratumRequest{}))
	_ = sonic.Pretouch(reflect.TypeOf(stratumMessage{}))
}
