// Package testinfra starts throwaway backing services for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/infrastructure/...
//
// Tests skip when no Docker daemon is reachable.
package testinfra
