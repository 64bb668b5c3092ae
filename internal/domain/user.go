package domain

import "time"

// ============================================================
// Users / Auth
// ============================================================

// User owns accounts. PasswordHash never leaves the service layer.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SignUpRequest is the body for POST /v1/auth/signup.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignInRequest is the body for POST /v1/auth/signin.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by sign-up and sign-in.
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

// TokenClaims is what the token manager embeds in and reads from a token.
type TokenClaims struct {
	UserID string
	Email  string
}
