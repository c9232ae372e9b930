package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TTL is the fixed token lifetime.
	TTL = 24 * time.Hour

	// Subject is the username carried by every issued token.
	Subject = "admin"
)

// Claims is the decoded token payload.
type Claims struct {
	Username  string           `json:"username"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Service signs and verifies tokens with a single process-wide secret.
type Service struct {
	secret   []byte
	minBytes int
	method   *jwt.SigningMethodHMAC
	subject  string
}

// Option configures NewService.
type Option func(*Service)

// WithMinSecretBytes rejects secrets shorter than n bytes.
func WithMinSecretBytes(n int) Option {
	return func(s *Service) { s.minBytes = n }
}

// WithSubject overrides the username written into issued tokens.
func WithSubject(username string) Option {
	return func(s *Service) {
		if strings.TrimSpace(username) != "" {
			s.subject = username
		}
	}
}

// NewService builds a Service bound to secret. The secret is copied.
func NewService(secret []byte, opts ...Option) (*Service, error) {
	s := &Service{
		method:  jwt.SigningMethodHS256,
		subject: Subject,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if err := CheckSecret(secret, s.minBytes); err != nil {
		return nil, err
	}
	s.secret = bytes.Clone(secret)
	return s, nil
}

// Issue signs a token valid from now until now+TTL.
func (s *Service) Issue(now time.Time) (string, Claims, error) {
	if s == nil || len(s.secret) == 0 {
		return "", Claims{}, ErrSecretMissing
	}

	iat := now.Truncate(time.Second)
	claims := Claims{
		Username:  s.subject,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(TTL)),
	}

	hb, err := json.Marshal(header{Alg: s.method.Alg(), Typ: "JWT"})
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: header: %w", err)
	}
	pb, err := json.Marshal(claims)
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: payload: %w", err)
	}

	signing := base64.StdEncoding.EncodeToString(hb) + "." + base64.StdEncoding.EncodeToString(pb)
	sig, err := s.method.Sign(signing, s.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: sign: %w", err)
	}

	return signing + "." + base64.StdEncoding.EncodeToString(sig), claims, nil
}

// Verify checks structure, signature and expiry of raw at time now.
// A token is expired when exp is strictly before now.
func (s *Service) Verify(raw string, now time.Time) (Claims, error) {
	if s == nil || len(s.secret) == 0 {
		return Claims{}, ErrSecretMissing
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformed
	}

	sig, err := decodeSegment(parts[2])
	if err != nil {
		return Claims{}, ErrMalformed
	}
	// HMAC verify compares with hmac.Equal.
	if err := s.method.Verify(parts[0]+"."+parts[1], sig, s.secret); err != nil {
		return Claims{}, ErrSignature
	}

	var h header
	if err := decodeJSONSegment(parts[0], &h); err != nil || h.Alg != s.method.Alg() {
		return Claims{}, ErrMalformed
	}

	var claims Claims
	if err := decodeJSONSegment(parts[1], &claims); err != nil {
		return Claims{}, ErrMalformed
	}
	if claims.Username == "" || claims.ExpiresAt == nil {
		return Claims{}, ErrMalformed
	}

	if claims.ExpiresAt.Before(now) {
		return Claims{}, ErrExpired
	}
	return claims, nil
}

// decodeSegment accepts padded standard base64 and tolerates stripped padding.
func decodeSegment(seg string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	if strings.ContainsRune(seg, '=') {
		return nil, base64.CorruptInputError(strings.IndexByte(seg, '='))
	}
	return base64.RawStdEncoding.DecodeString(seg)
}

func decodeJSONSegment(seg string, dst any) error {
	b, err := decodeSegment(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
