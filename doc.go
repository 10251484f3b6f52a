// Package authcore implements the authentication core for an application
// backend: credential verification, signed-token issuance and rotation,
// server-side sessions, single-use verification codes, and TOTP multi-factor
// enrollment.
//
// The package is transport-agnostic. It expects already-parsed intents and
// returns typed results or sentinel errors; HTTP routing, request validation,
// and response shaping belong to the caller. [Code] and [HTTPStatus] map the
// sentinels to stable machine codes and transport statuses so the boundary
// layer stays mechanical.
//
// Construct an [Engine] through the [Builder]:
//
//	engine, err := authcore.New().
//		WithRedis(client).
//		WithMailer(sender).
//		Build()
//
// All state lives in Redis; the Engine itself holds only immutable
// configuration and is safe for concurrent use.
package authcore
