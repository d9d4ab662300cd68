package auth

import (
	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/session"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
)

// LoginRequest captures credentials for the backend's local provider.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// RegisterRequest creates a credential account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ProfileRequest is a partial profile update. Nil fields are left alone.
type ProfileRequest struct {
	Username *string        `json:"username,omitempty" validate:"omitempty,min=3,max=64"`
	Email    *string        `json:"email,omitempty" validate:"omitempty,email"`
	Address  *types.Address `json:"address,omitempty"`
}

// Outcome is the session after an identity change, plus the cart
// reconciliation it triggered.
type Outcome struct {
	Session session.Snapshot `json:"session"`
	Sync    *cart.SyncResult `json:"sync,omitempty"`
}
