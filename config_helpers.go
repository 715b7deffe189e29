package main

import (
	"errors"
	"os"
)

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func int64Ptr(v int64) *int64 { return &v }

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
