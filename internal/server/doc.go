// Package server implements the roomcast chat backend: the message acceptance
// pipeline (flood and spam filtering), the shared room/user/history registries,
// and the broadcast hub that fans accepted messages out to live SSE and
// WebSocket subscribers.
//
// The implementation is organized into specialized files for configuration,
// the filter, the state store, the hub, transports, and HTTP handlers to keep
// the codebase maintainable and testable as the project grows.
package server
