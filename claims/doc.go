// Package claims decodes the payload segment of stored JWTs into unverified
// hints used for client-side expiry inspection.
//
// Nothing in this package verifies a signature. A [Hint] is never proof of
// identity — the only authoritative answer is the backend's status endpoint.
// Hints exist solely to skip network round-trips when a token is obviously
// still fresh, and to fail closed without one when it obviously is not.
//
// # Architecture boundaries
//
// This package owns payload decoding and expiry arithmetic. Token storage,
// refresh coordination, and identity queries live in the root package and
// package store.
//
// # What this package must NOT do
//
//   - Verify signatures or otherwise claim a token is authentic.
//   - Perform any I/O.
//   - Import goSession, store, or middleware.
package claims
