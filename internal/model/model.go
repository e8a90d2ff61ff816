package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleElderly Role = "elderly"
	RoleStaff   Role = "staff"
)

// ParseRole accepts only the two known roles.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(value))) {
	case RoleElderly:
		return RoleElderly, true
	case RoleStaff:
		return RoleStaff, true
	default:
		return "", false
	}
}

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Snapshot copies the identity fields bound to a session at login.
func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}

type UserSnapshot struct {
	ID        string `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

func (u UserSnapshot) Anonymous() bool {
	return u.ID == ""
}

type Session struct {
	Token     string
	TokenHash string
	User      UserSnapshot
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
)

type RequesterName struct {
	FirstName string
	LastName  string
}

type Request struct {
	ID          string
	UserID      string
	Description string
	Status      Status
	Priority    bool
	CreatedAt   time.Time
	Requester   *RequesterName
}
