// Package flows holds the stateless orchestrators behind the session
// manager's credential exchanges: establishing a session from a backend
// payload, refreshing the access token, logging out, and restoring a
// persisted record.
//
// Each Run function takes a typed dependency struct and returns a result
// carrying either the new record or a failure kind the root package maps to
// its own errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flows never touch the manager's in-memory state or navigation. They do not
// write the session store either, except for the unconditional clear on
// logout; committing a new record is the manager's job so it can be ordered
// against concurrent logouts.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import storegate (to avoid import cycles).
package flows
