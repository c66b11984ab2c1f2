// Package goSession manages the client half of a JWT session: the stored
// access/refresh token pair, single-flight token refresh, a cached identity
// query, and the building blocks route guards consume.
//
// A [Session] is an explicitly constructed, injectable object built through
// [Builder.Build] — one logical user session per instance, no module-level
// globals — so multiple independent sessions can coexist in one process and
// in one test.
//
// # Fail-closed contract
//
// Every failure in this package collapses to "not authenticated": absent or
// undecodable tokens, storage errors, transport errors, and rejected
// refreshes all resolve to an empty token or an unauthenticated identity,
// never to an exception on a rendering path. A rejected refresh clears both
// stored tokens immediately; partial states are never left standing.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Session], [Builder],
// [Config], and value types. Claim decoding lives in package claims, token
// persistence in package store, HTTP route guarding in package middleware.
//
// # What this package must NOT do
//
//   - Verify token signatures or treat decoded claims as proof of identity;
//     only the backend's status response is authoritative.
//   - Retry a failed refresh on its own; the caller must re-authenticate.
//   - Write to the token store outside Login, Refresh, and Logout.
package goSession
