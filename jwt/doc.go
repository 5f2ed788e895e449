// Package jwt verifies the backend's signed access tokens and extracts the
// identity claims the edge gate and session manager act on.
//
// A [Verifier] is built once at startup and is safe for concurrent use. It
// holds no state beyond its configuration; claims are recomputed on every
// call and never cached.
package jwt
