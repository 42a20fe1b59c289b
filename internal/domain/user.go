package domain

import "time"

// Role values.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Account status. Status only ever moves UNVERIFIED -> ACTIVE.
const (
	StatusUnverified = "UNVERIFIED"
	StatusActive     = "ACTIVE"
)

// Authentication origin of an account.
const (
	ProviderLocal    = "LOCAL"
	ProviderGoogle   = "GOOGLE"
	ProviderFacebook = "FACEBOOK"
)

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	Phone        *string   `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	FullName     string    `json:"full_name" dynamodbav:"full_name"`
	AvatarURL    string    `json:"avatar_url,omitempty" dynamodbav:"avatar_url"`
	Role         string    `json:"role" dynamodbav:"role"`
	Status       string    `json:"status" dynamodbav:"status"`
	Provider     string    `json:"provider" dynamodbav:"provider"`
	ProviderID   string    `json:"-" dynamodbav:"provider_id"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

// SocialProfile holds the identity a social provider vouches for after a
// successful token exchange.
type SocialProfile struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}
