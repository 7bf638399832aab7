package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Token scopes accepted by the engine.
const (
	ScopeTimetableRead  = "timetable:read"
	ScopeTimetableWrite = "timetable:write"
)

// JWTClaims is the payload of access tokens presented by calling services.
type JWTClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the space-separated scope claim grants scope.
// Write access implies read access.
func (c *JWTClaims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	for _, granted := range strings.Fields(c.Scope) {
		if granted == scope || (scope == ScopeTimetableRead && granted == ScopeTimetableWrite) {
			return true
		}
	}
	return false
}
