package model

import "time"

// Student represents a registered portal user.
type Student struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterStudentRequest is the payload for student self-registration.
type RegisterStudentRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// StudentLoginRequest is the payload for student login.
type StudentLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
