package auth

import "time"

// User is an account that can schedule and join meetings.
// It mirrors the users table and carries no JSON annotations so each
// presentation layer can shape its own payload.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	TimeZone     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	TimeZone string `json:"time_zone"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
