// Package password provides the credential digest service: an argon2id
// hasher producing PHC-formatted digests. The orchestrator calls Hash and
// Verify explicitly; hashing is never coupled to persistence.
package password
