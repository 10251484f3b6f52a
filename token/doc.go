// Package token implements stateless signing and verification of the two
// credential families used by authcore: short-lived access tokens bound to a
// user and session, and long-lived refresh tokens bound to a session only.
//
// The two families use separate HMAC secrets and separate audiences, so a
// refresh token can never be accepted where an access token is expected and
// vice versa. An [Issuer] holds only immutable configuration and is safe for
// unsynchronized concurrent use.
package token
