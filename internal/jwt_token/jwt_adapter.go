package jwttoken

import (
	authmw "speechact/pkg/platform/middleware/auth"
)

var _ authmw.JWTValidator = (*JWTServiceAdapter)(nil)

// callerClaims projects the signed claims onto what the middleware stores in
// the request context.
func callerClaims(c *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		CallerID: c.Subject,
		Facility: c.Facility,
		JTI:      c.ID,
	}
}

// JWTServiceAdapter lets the auth middleware validate caller tokens.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return callerClaims(claims), nil
}
