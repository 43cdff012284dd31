package dto

import (
	"time"

	"github.com/GlebRadaev/solyield/internal/domain"
)

type ChallengeRequestDTO struct {
	WalletAddress string `json:"walletAddress" validate:"required,solana_address" example:"US517G5965aydkZ46HS38QLi7UQiSojurfbQfKCELFx"`
}

type ChallengeResponseDTO struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp" example:"1760400000000"`
	Nonce     string `json:"nonce" example:"5f0c3a52-8f0e-4c2b-9a57-0b9c8f1c2d11"`
}

type LoginRequestDTO struct {
	WalletAddress string `json:"walletAddress" validate:"required,solana_address"`
	Signature     string `json:"signature" validate:"required"`
	Message       string `json:"message" validate:"required"`
}

type LoginResponseDTO struct {
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         UserDTO   `json:"user"`
}

type SessionResponseDTO struct {
	User UserDTO `json:"user"`
	Role string  `json:"role" example:"user"`
}

type ProfileRequestDTO struct {
	Username    string `json:"username" validate:"required,min=3,max=32" example:"satoshi_42"`
	DisplayName string `json:"displayName" validate:"max=64" example:"Satoshi"`
}

type UserDTO struct {
	ID               string     `json:"id"`
	WalletAddress    string     `json:"walletAddress"`
	Username         *string    `json:"username"`
	DisplayName      *string    `json:"displayName"`
	ProfileCompleted bool       `json:"profileCompleted"`
	LoginCount       int        `json:"loginCount"`
	LastLoginAt      *time.Time `json:"lastLoginAt"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func NewUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:               u.ID,
		WalletAddress:    u.WalletAddress,
		Username:         u.Username,
		DisplayName:      u.DisplayName,
		ProfileCompleted: u.ProfileCompleted,
		LoginCount:       u.LoginCount,
		LastLoginAt:      u.LastLoginAt,
		CreatedAt:        u.CreatedAt,
	}
}
