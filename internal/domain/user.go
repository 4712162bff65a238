package domain

import (
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the session identity a successful login grants.
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

type CreateUserInput struct {
	Username string `json:"username" validate:"min=3"`
	Password string `json:"password" validate:"min=6"`
	FullName string `json:"fullName" validate:"min=2"`
	Role     string `json:"role" validate:"oneof=admin driver"`
}

type UpdateUserInput struct {
	FullName string `json:"fullName" validate:"min=2"`
	Role     string `json:"role" validate:"oneof=admin driver"`
	IsActive *bool  `json:"isActive" validate:"required"`
}

type ResetPasswordInput struct {
	NewPassword string `json:"newPassword" validate:"min=6"`
}

type LoginInput struct {
	Username string `json:"username" validate:"min=3"`
	Password string `json:"password" validate:"min=6"`
}
