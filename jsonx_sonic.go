//go:build !nojsonsimd

package main

import "github.com/bytedance/sonic"

// Stratum lines are small and frequent; sonic keeps decode off the profile.
var fastJSON = sonic.ConfigDefault

func fastJSONMarshal(v any) ([]byte, error) {
	return fastJSON.Marshal(v)
}

func fastJSONUnmarshal(data []byte, v any) error {
	return fastJSON.Unmarshal(data, v)
}
