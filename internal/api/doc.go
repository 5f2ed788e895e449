// Package api is the backend REST client. It is the only code in storegate
// that knows endpoint paths, request bodies and the {success, data, error}
// response envelope.
//
// Every failure is returned as [*Error], which records the HTTP status and
// whether the call failed below the HTTP layer. The root package maps that to
// its own error kinds.
package api
