// Package session provides Redis-backed session persistence for the
// authentication hot paths.
//
// # Storage model
//
// Each session is a Redis hash keyed by session ID, indexed per user through
// a set of session IDs. Expiry is enforced twice: a Redis TTL on the hash and
// an expires_at field checked (and lazily cleaned up) on read, so a session
// is never honored past its recorded lifetime even if the key TTL drifts.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does NOT mint or verify tokens and does not decide when a refresh is
// allowed — those responsibilities belong to the orchestrating engine. The
// one policy primitive it does provide is [Store.RotateOnRefresh], because
// the extend-or-leave decision must be atomic with the read.
package session
