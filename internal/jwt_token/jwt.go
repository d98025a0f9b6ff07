package jwttoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Validation failures. They stay inside the authentication pipeline and are
// never shown to clients.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token has expired")
)

// ErrSigningKeyMissing is the startup-time SigningError: without a key no
// token can be minted or checked.
var ErrSigningKeyMissing = errors.New("jwt signing key is not configured")

// Claims are the access token claims. Subject carries the username.
type Claims struct {
	ModeEpoch uint64 `json:"mode_epoch"`
	jwt.RegisteredClaims
}

// JWTService mints and checks HS256 access tokens. It holds no per-token
// state, so it is safe for concurrent use without locking.
type JWTService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewJWTService(signingKey string, issuer string, ttl time.Duration) (*JWTService, error) {
	if signingKey == "" {
		return nil, ErrSigningKeyMissing
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}, nil
}

// TTL is the lifetime given to every token.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// IssueAt signs a token for username valid from now until now+TTL.
func (s *JWTService) IssueAt(username string, modeEpoch uint64, now time.Time) (string, error) {
	if username == "" {
		return "", errors.New("token subject is required")
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ModeEpoch: modeEpoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signedToken, nil
}

// ValidateAt checks tokenString against the signing key with now as the
// current time. It performs no I/O.
func (s *JWTService) ValidateAt(tokenString string, now time.Time) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	return claims, nil
}

// classify folds jwt library errors into the three validation failures.
// Signature checks run before claim checks, so a tampered expired token is
// reported as a signature failure.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
}
