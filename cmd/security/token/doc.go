// Package token issues and verifies tabula bearer tokens.
//
// Wire format:
//
//	base64(header_json) "." base64(payload_json) "." base64(hmac_sha256(seg1 "." seg2))
//
// All three segments use the standard, padded base64 alphabet (not the
// URL-safe JWT variant); existing clients depend on this exact encoding. The
// header is always {"alg":"HS256","typ":"JWT"} and the payload carries the
// username plus iat/exp in epoch seconds.
//
// There is one verification path. It checks structure, signature and
// expiry, in that order, and every failure wraps ErrInvalidToken.
//
// The signing secret is injected once through NewService and never changes
// for the lifetime of the Service.
package token
