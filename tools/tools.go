//go:build tools
// +build tools

// Package tools documents development tool dependencies. These are
// installed with `go install` and intentionally kept out of go.mod since
// they never ship in the binary.
package tools

// Development tools:
//
// mockgen - generates the gomock doubles under internal/mocks
//   Install: go install go.uber.org/mock/mockgen@v0.5.0
//
// air - live reload during development
//   Install: go install github.com/air-verse/air@v1.63.0
