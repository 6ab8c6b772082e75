package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Username string
	Password string
	IP       string // Client IP, logged only
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	TokenType   string
	User        UserInfo
}

// UserInfo contains basic user information
type UserInfo struct {
	ID          uuid.UUID
	Username    string
	DisplayName string
	Email       string
	LastLoginAt *time.Time
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID   uuid.UUID
	TokenJTI string
	TokenTTL time.Duration // Remaining token lifetime
}

func toUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName(),
		Email:       u.Email,
		LastLoginAt: u.LastLoginAt,
	}
}
