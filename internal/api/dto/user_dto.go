package dto

import (
	"time"

	"github.com/blogkit/auth-gateway/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login. Username accepts either the username or
// the account email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordChangeRequest payload.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// UserResponse is the full account view returned to the owner and admins.
type UserResponse struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	Bio          string      `json:"bio,omitempty"`
	AvatarURL    string      `json:"avatar_url,omitempty"`
	Banned       bool        `json:"banned"`
	TokenVersion int64       `json:"token_version"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ProfileResponse is the public account view.
type ProfileResponse struct {
	Username  string    `json:"username"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromUser maps a credential record to the full view.
func FromUser(user *domain.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role,
		Bio:          user.Bio,
		AvatarURL:    user.AvatarURL,
		Banned:       user.Banned,
		TokenVersion: user.TokenVersion,
		CreatedAt:    user.CreatedAt,
	}
}

// FromUserPublic maps a credential record to the public view.
func FromUserPublic(user *domain.User) ProfileResponse {
	return ProfileResponse{
		Username:  user.Username,
		Bio:       user.Bio,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
}
