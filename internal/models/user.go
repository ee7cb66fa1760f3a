package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account holder.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserPublic is User without credential material, as exposed to poll readers.
type UserPublic struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}
