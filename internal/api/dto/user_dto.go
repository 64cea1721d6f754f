package dto

import "time"

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Department string `json:"department" validate:"max=120"`
	Phone      string `json:"phone" validate:"max=40"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest is the admin payload for any role.
type CreateUserRequest struct {
	UserRegisterRequest
	Role string `json:"role" validate:"omitempty,oneof=USER IT ADMIN"`
}

// LinkLineRequest binds a LINE id to a user.
type LinkLineRequest struct {
	LineUserID  string `json:"line_user_id" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=120"`
	Verified    bool   `json:"verified"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Role       string        `json:"role"`
	Department string        `json:"department,omitempty"`
	Phone      string        `json:"phone,omitempty"`
	LineLink   *LinkResponse `json:"line_link,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// LinkResponse describes a LINE binding.
type LinkResponse struct {
	LineUserID  string     `json:"line_user_id"`
	DisplayName string     `json:"display_name,omitempty"`
	Status      string     `json:"status"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
}
