//go:build tools
// +build tools

// Package tools pins development tool dependencies in go.mod.
//
// mockgen regenerates internal/mocks:
//
//	go generate ./internal/mocks
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
