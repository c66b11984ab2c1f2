// Package middleware exposes the HTTP route-guard family built on top of a
// goSession.Session.
//
// # Guards
//
//   - [Guard.Require] — authenticated sessions only.
//   - [Guard.RequireAdmin] — authenticated sessions with the admin role.
//
// Each guard asks the session for its current identity on every request and
// resolves to one of three outcomes: render the protected handler (identity
// injected into the request context), send the caller to the login route
// (unauthenticated), or send it to the default route (authenticated but
// unauthorized). With no redirect paths configured the guards answer 401 and
// 403 instead. Identity is re-evaluated per request, so a guard can never
// keep serving protected content after the session became invalid.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Session calls. It does NOT
// implement authentication logic itself — every decision is delegated to
// Session.Identity, and identity query errors fail closed into the
// unauthenticated outcome.
//
// # What this package must NOT do
//
//   - Read or write the token store.
//   - Decode tokens or trust claim hints.
//   - Make authorization decisions beyond the two predicates above.
package middleware
