package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               string
	WalletAddress    string
	Username         *string
	DisplayName      *string
	ProfileCompleted bool
	LoginCount       int
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Session struct {
	ID             string
	UserID         string
	WalletAddress  string
	Token          string
	Message        string
	Signature      string
	ExpiresAt      time.Time
	LastActivityAt time.Time
	IsActive       bool
	CreatedAt      time.Time
}

func (s *Session) Valid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
