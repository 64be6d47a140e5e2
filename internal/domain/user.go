package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser   = "user"
	RoleDealer = "dealer"
	RoleAdmin  = "admin"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	Phone        string    `json:"phone,omitempty"`
	Email        *string   `json:"email,omitempty"`
	AvatarURL    *string   `json:"avatar,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdDate"`
	UpdatedAt    time.Time `json:"updatedDate"`
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Profile returns the session-facing view of the user.
func (u *User) Profile() Profile {
	p := Profile{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
	}
	if u.AvatarURL != nil {
		p.Avatar = *u.AvatarURL
	}
	return p
}

// Profile is the identity blob a client keeps for the logged-in user.
type Profile struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
	FullName string    `json:"fullName,omitempty"`
	Avatar   string    `json:"avatar,omitempty"`
	Role     string    `json:"role,omitempty"`
}

func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Username
}

// ProfileEnvelope wraps the profile the way the login endpoint nests it.
type ProfileEnvelope struct {
	Data Profile `json:"data"`
}

type LoginResult struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	UserProfile  ProfileEnvelope `json:"userProfile"`
}
