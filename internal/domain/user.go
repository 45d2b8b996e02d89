package domain

import (
	"strings"
	"time"
)

type User struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	EmailVerified     bool      `json:"emailVerified"`
	VerificationToken *string   `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewUser carries the fields the storage layer needs to create a user.
// ID, EmailVerified and CreatedAt are assigned by the store.
type NewUser struct {
	Username          string
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	VerificationToken *string
}

type SignupRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50,excludesall=@"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

func (r *SignupRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

// LoginRequest accepts either a username or an email in Username. Email is
// kept as an alias for clients that post {email, password}.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		r.Username = strings.TrimSpace(r.Email)
	}
	if strings.Contains(r.Username, "@") {
		r.Username = NormalizeEmail(r.Username)
	}
}

type UserInfo struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}
