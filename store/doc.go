// Package store persists the session's token pair in durable client-side
// storage behind a pluggable key-value [Backend].
//
// The pair lives under two fixed, namespaced keys — one per slot — so a
// partial write can never corrupt the other half. Reads fail closed into
// "logged out": a backend error is logged and surfaces as an absent token,
// never as an error the caller has to handle on a render path.
//
// # Backends
//
//   - [Memory] — process-local, for tests and ephemeral sessions.
//   - [File] — single JSON document with atomic rename writes.
//   - [Redis] — go-redis backed, for sessions shared across restarts.
//
// # Architecture boundaries
//
// This package owns raw token persistence. It never decodes tokens (package
// claims) and never decides when to write (the root package's session is the
// only writer, during login, refresh, and logout).
package store
