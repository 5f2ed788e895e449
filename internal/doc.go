// Package internal holds the pieces of storegate that are not part of its
// public API.
//
// # Sub-packages
//
//   - api: the backend REST client and its response envelope
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: the login, refresh, logout and rehydrate sequences, free of
//     manager state
//   - logger: the process zap logger and its context plumbing
//
// # What this package must NOT do
//
//   - Export types that appear in the public storegate API.
//   - Be imported by any package outside the storegate module.
package internal
