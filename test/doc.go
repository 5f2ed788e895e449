// Package test holds integration tests that run the session manager, the
// Redis session store and the edge gate together against a stand-in
// backend. Run them with -tags integration.
package test
