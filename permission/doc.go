// Package permission holds the role set, the route table, the role → path-prefix
// permission matrix and the navigation decision shared by the edge gate and the
// session manager.
//
// # Shared decisions
//
// [Decide] is the single authorization decision. The edge gate calls it on every
// request and the session manager calls it (through [GuardNavigation]) on every
// navigation, so the two sides cannot drift apart. The client-side result is a
// convenience only; the edge gate is the enforcement point.
//
// # Fail closed
//
// [ParseRole] accepts only canonical role names. A role string outside the set
// has no grants: it reaches public and authenticated-home routes and nothing
// else.
//
// # What this package must NOT do
//
//   - Perform I/O beyond decoding a matrix document handed to it.
//   - Import storegate, jwt, or session.
//   - Mutate a matrix after [Matrix.Freeze].
package permission
