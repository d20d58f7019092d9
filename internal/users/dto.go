package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/pkg/db/models"
)

// UserDTO is the view shape that omits credentials.
type UserDTO struct {
	ID          uuid.UUID
	Username    string
	Email       string
	LastLoginAt *time.Time
	CreatedAt   time.Time
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Username     string
	Email        string
	PasswordHash string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Username:     c.Username,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		IsActive:     true,
	}
}
