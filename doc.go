// Package storegate is the session and access-control layer of the retail
// back-office client: a [Manager] that owns the client's credentials and
// keeps its navigation consistent with the role permission matrix, and the
// shared pieces ([Config], [Metrics], [Error]) the edge gate in
// storegate/middleware builds on.
//
// A Manager is safe to call from multiple goroutines after [Builder.Build].
// It starts in the Loading state; [Manager.Rehydrate] resolves it from the
// session store.
//
// # Architecture boundaries
//
// storegate is the public surface. It exposes [Manager], [Builder], [Config],
// [Error] and value types (Session, User, Identity, MetricsSnapshot). The REST
// contract, flow orchestration, audit dispatch and logging live under
// internal/ and are never exported. Token verification lives in
// storegate/jwt, the route table and matrix in storegate/permission, and
// persistence in storegate/session.
//
// # What this package must NOT do
//
//   - Expose the backend client or its wire types in its public API.
//   - Perform I/O outside of Manager methods (Build only dials Redis lazily).
//   - Import storegate/middleware or any sub-package that re-imports storegate.
//   - Decide navigation on its own; every route decision goes through
//     permission.GuardNavigation.
package storegate
