package transport

import (
	"time"

	"github.com/google/uuid"
)

// Entitlement tiers.
const (
	TierFree = "free"
	TierPro  = "pro"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// RegisterRequest is the request body for account creation.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the request body for authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateDefaultsRequest sets the user's quoting defaults.
type UpdateDefaultsRequest struct {
	DefaultMarkupPercent  *float64 `json:"defaultMarkupPercent" validate:"omitempty,min=0,max=1000"`
	DefaultLaborRateCents *int64   `json:"defaultLaborRateCents" validate:"omitempty,min=0"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ProfileResponse is the user's profile payload.
type ProfileResponse struct {
	ID                    uuid.UUID `json:"id"`
	Email                 string    `json:"email"`
	Tier                  string    `json:"tier"`
	DefaultMarkupPercent  *float64  `json:"defaultMarkupPercent,omitempty"`
	DefaultLaborRateCents *int64    `json:"defaultLaborRateCents,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}
