package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleCollector  = "collector"
	RoleDispatcher = "dispatcher"
)

// Account is a field collector or dispatcher who can log in.
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         string             `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AccountSummary is the public view of an account returned after login.
type AccountSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a Account) Summary() AccountSummary {
	role := a.Role
	if role == "" {
		role = RoleCollector
	}
	return AccountSummary{
		ID:    a.ID.Hex(),
		Name:  a.Name,
		Email: a.Email,
		Role:  role,
	}
}

func IsKnownRole(role string) bool {
	return role == RoleCollector || role == RoleDispatcher
}
