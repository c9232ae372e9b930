// Package password provides password hashing and verification for tabula.
//
// The default scheme is a hex SHA-256 digest over password+salt with a
// 16-character alphanumeric salt. This is the format stored in existing
// identity records and must stay byte-compatible.
//
// An Argon2id scheme can be enabled for newly created identities. Its
// parameters are encoded in the scheme string stored next to the digest, so
// verification always uses the parameters the digest was produced with.
//
// Security notes:
//   - Digests are compared in constant time.
//   - Scheme strings are untrusted input during Verify; Argon2id parameters far
//     above the configured limits are refused.
package password
