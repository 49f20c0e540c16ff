package model

import (
	"time"

	"github.com/google/uuid"
)

// RoleUser is assigned to every self-provisioned account.
const RoleUser = "USER"

// User is a registered customer.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"fullName" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Address is an entry of a user's address book.
type Address struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	IsDefault bool      `json:"isDefault" db:"is_default"`
	ShippingAddress
}
