package models

import (
	"time"
)

type User struct {
	ID           int64     `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PhoneNumber  string    `json:"phoneNumber"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RegisterInput struct {
	Name        string `validate:"required"`
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=6"`
	PhoneNumber string `validate:"required"`
}

type LoginInput struct {
	Email       string
	PhoneNumber string
	Password    string `validate:"required"`
}

// UpdateAccountInput carries a partial account update. Nil fields are left untouched.
type UpdateAccountInput struct {
	Name        *string `validate:"omitnil,min=1"`
	Email       *string `validate:"omitnil,email"`
	PhoneNumber *string `validate:"omitnil,min=1"`
	Password    *string `validate:"omitnil,min=6"`
}

// Session is the result of a successful login or token refresh.
type Session struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
