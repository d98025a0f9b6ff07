package jwttoken

import (
	"time"

	authmw "storefront/internal/platform/middleware"
)

func ToMiddlewareClaims(claims *Claims) *authmw.TokenClaims {
	return &authmw.TokenClaims{
		Subject:   claims.Subject,
		ModeEpoch: claims.ModeEpoch,
		JTI:       claims.ID,
	}
}

// JWTServiceAdapter exposes JWTService through the middleware's validator
// interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateAt(tokenString string, now time.Time) (*authmw.TokenClaims, error) {
	claims, err := a.service.ValidateAt(tokenString, now)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
