package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tabula/cmd/internal/fault"
	"tabula/cmd/kv"
	"tabula/cmd/security/password"
)

// RoleAdmin is the only role an Identity can hold.
const RoleAdmin = "admin"

// Identity is the persisted administrator credential.
//
// JSON field names are part of the storage format.
type Identity struct {
	PasswordHash string    `json:"passwordHash"`
	Salt         string    `json:"salt"`
	CreatedAt    time.Time `json:"createdAt"`
	Role         string    `json:"role"`
	// Scheme is empty for SHA-256 digests.
	Scheme string `json:"scheme,omitempty"`
}

// Store reads and creates the singleton identity.
type Store struct {
	kv     kv.Store
	hasher password.Config
}

// NewStore binds a Store to a key-value backend and password configuration.
func NewStore(st kv.Store, hasher password.Config) (*Store, error) {
	if st == nil {
		return nil, errors.New("identity: nil kv store")
	}
	return &Store{kv: st, hasher: hasher}, nil
}

// Get returns the identity, or an ErrNotFound OpError when it was never created.
func (s *Store) Get(ctx context.Context) (Identity, error) {
	const op = "identity.Get"

	raw, err := s.kv.Get(ctx, kv.IdentityKey())
	if errors.Is(err, kv.ErrNotFound) {
		return Identity{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return Identity{}, fault.Store(op, "", err)
	}

	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return Identity{}, fault.Store(op, "", OpError{Op: op, Kind: ErrCorrupt, Msg: err.Error()})
	}
	if id.PasswordHash == "" {
		return Identity{}, fault.Store(op, "", OpError{Op: op, Kind: ErrCorrupt, Msg: "empty password hash"})
	}
	return id, nil
}

// Create derives a fresh salted hash for plain and persists the identity.
// It returns ConflictError if an identity already exists.
func (s *Store) Create(ctx context.Context, plain string, now time.Time) (Identity, error) {
	const op = "identity.Create"

	if plain == "" {
		return Identity{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty password"}
	}

	salt, err := password.GenerateSalt()
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	digest, scheme, err := s.hasher.Hash(plain, salt)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	id := Identity{
		PasswordHash: digest,
		Salt:         salt,
		CreatedAt:    now.UTC(),
		Role:         RoleAdmin,
		Scheme:       scheme,
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.kv.PutIfAbsent(ctx, kv.IdentityKey(), raw)
	if err != nil {
		return Identity{}, fault.Store(op, "", err)
	}
	if !created {
		return Identity{}, ConflictError{Op: op}
	}
	return id, nil
}

// CheckPassword reports whether plain matches id's stored digest.
func (s *Store) CheckPassword(id Identity, plain string) (bool, error) {
	return s.hasher.Verify(plain, id.PasswordHash, id.Salt, id.Scheme)
}
