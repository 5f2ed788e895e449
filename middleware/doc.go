// Package middleware is the edge gate: HTTP middleware that decides, before
// any application handler runs, whether a request may proceed.
//
// # Guards
//
//   - [Guard] runs the full pipeline: clean the path, pass public routes,
//     extract and verify the access token, refresh it when it is close to
//     expiry, authorize the path against the permission matrix, forward.
//   - [RequireIdentity] verifies the token only, for routes that do their own
//     authorization.
//   - [RequireRole] restricts a route to a set of roles, downstream of either.
//
// Verified callers travel to the next handler as a storegate.Identity in the
// request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into calls to jwt.Verifier,
// permission.Decide and a Refresher. Route classification and the allow
// decision are never re-implemented here; they are the same functions the
// session manager uses for navigation.
//
// # What this package must NOT do
//
//   - Mint tokens (only the backend issues them).
//   - Surface raw errors to clients; every failure is a redirect, a JSON
//     401/403 under the API prefix, or a pass-through.
//   - Keep per-request state beyond the refresh de-duplication cache.
package middleware
