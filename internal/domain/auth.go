package domain

import "github.com/golang-jwt/jwt/v5"

// CustomClaims - клеймы токена оператора NOC, выпущенного внешним IdP.
type CustomClaims struct {
	UserID string          `json:"user_id"`
	Scopes map[string]bool `json:"scopes"` // "copilot.chat": true
	jwt.RegisteredClaims
}

// ScopeChat - право отправлять запросы агенту.
const ScopeChat = "copilot.chat"
