// Package identity persists tabula's single administrative identity.
//
// The identity is a singleton record under kv.IdentityKey. It is created once,
// on the first successful-shaped login, and is never mutated or deleted
// afterwards. Creation goes through put-if-absent so two racing first logins
// cannot both become the administrator.
package identity
