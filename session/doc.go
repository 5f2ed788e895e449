// Package session persists the client's credential record: the access token,
// the refresh token and the serialized user. The three slots are always
// written together and cleared together.
//
// # Stores
//
// [FileStore] keeps the record in a single versioned binary file replaced
// atomically. [RedisStore] keeps it under three keys written in one MULTI/EXEC.
// [MemoryStore] is process-local and used by tests and short-lived tools.
//
// # Architecture boundaries
//
// This package owns the [Record] and its encoding. It does NOT parse tokens,
// decode the user record, or decide whether a session is authenticated; those
// belong to the session manager.
//
// # What this package must NOT do
//
//   - Import storegate, jwt, or permission (no upward imports).
//   - Return a partially filled record from Load.
//   - Write any slot without writing the others.
package session
