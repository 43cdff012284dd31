package authservice

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/config"
	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/pkg/auth"
	"github.com/GlebRadaev/solyield/pkg/validate"
)

//go:generate mockgen -source=authservice.go -destination=mock_authservice.go -package=authservice

var (
	ErrInvalidSignature = fmt.Errorf("%w: invalid wallet signature", domain.ErrAuth)
	ErrWalletMismatch   = fmt.Errorf("%w: challenge was issued to another wallet", domain.ErrAuth)
	ErrChallengeInvalid = fmt.Errorf("%w: challenge does not match", domain.ErrAuth)
	ErrSessionInvalid   = fmt.Errorf("%w: session expired or revoked", domain.ErrAuth)

	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)
)

type UserRepo interface {
	FindByWallet(ctx context.Context, wallet string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	RecordLogin(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id, username, displayName string) (*domain.User, error)
}

type SessionRepo interface {
	Create(ctx context.Context, s *domain.Session) error
	FindActive(ctx context.Context, token string, now time.Time) (*domain.Session, error)
	Touch(ctx context.Context, id string, now time.Time) error
	Deactivate(ctx context.Context, token string) error
}

type ChallengeStore interface {
	Save(ctx context.Context, c *domain.Challenge, ttl time.Duration) error
	Consume(ctx context.Context, wallet, nonce string) (*domain.Challenge, error)
}

type Ledger interface {
	EnsureBalance(ctx context.Context, wallet string, userID *string) error
}

type Service struct {
	cfg        *config.Config
	users      UserRepo
	sessions   SessionRepo
	challenges ChallengeStore
	ledger     Ledger
	jwtService auth.JWTServiceInterface
	now        func() time.Time
}

func New(cfg *config.Config, users UserRepo, sessions SessionRepo, challenges ChallengeStore, ledger Ledger, jwtService auth.JWTServiceInterface) *Service {
	return &Service{
		cfg:        cfg,
		users:      users,
		sessions:   sessions,
		challenges: challenges,
		ledger:     ledger,
		jwtService: jwtService,
		now:        time.Now,
	}
}

// Challenge issues a one-time message for the wallet to sign.
func (s *Service) Challenge(ctx context.Context, wallet string) (*domain.Challenge, error) {
	if !validate.IsAddress(wallet) {
		return nil, &domain.ValidationError{Field: "walletAddress", Message: "invalid Solana address"}
	}
	c := domain.NewChallenge(wallet, uuid.NewString(), s.now(), s.cfg.ChallengeTTL)
	if err := s.challenges.Save(ctx, c, s.cfg.ChallengeTTL); err != nil {
		zap.L().Error("can't save challenge", zap.Error(err))
		return nil, err
	}
	return c, nil
}

// Login checks the signed challenge and opens a session. The first login of
// a wallet creates its user.
func (s *Service) Login(ctx context.Context, wallet, signature, message string) (*domain.Session, *domain.User, error) {
	if !validate.IsAddress(wallet) {
		return nil, nil, &domain.ValidationError{Field: "walletAddress", Message: "invalid Solana address"}
	}
	signedWallet, ts, nonce, err := domain.ParseChallengeMessage(message)
	if err != nil {
		return nil, nil, err
	}
	if signedWallet != wallet {
		return nil, nil, ErrWalletMismatch
	}
	if !auth.VerifyWalletSignature(wallet, message, signature) {
		zap.L().Info("invalid wallet signature", zap.String("wallet", wallet))
		return nil, nil, ErrInvalidSignature
	}
	issued, err := s.challenges.Consume(ctx, wallet, nonce)
	if err != nil {
		return nil, nil, err
	}
	if issued.Message != message || issued.Timestamp != ts {
		return nil, nil, ErrChallengeInvalid
	}

	user, err := s.findOrCreateUser(ctx, wallet)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		return nil, nil, err
	}
	now := s.now()
	user.LoginCount++
	user.LastLoginAt = &now

	if err := s.ledger.EnsureBalance(ctx, wallet, &user.ID); err != nil {
		return nil, nil, err
	}

	expiresAt := now.Add(s.cfg.SessionTTL)
	token, err := s.jwtService.GenerateJWT(auth.Identity{UserID: user.ID, Wallet: wallet, Role: s.role(wallet)}, expiresAt)
	if err != nil {
		zap.L().Error("can't generate token: ", zap.Error(err))
		return nil, nil, err
	}
	session := &domain.Session{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		WalletAddress:  wallet,
		Token:          token,
		Message:        message,
		Signature:      signature,
		ExpiresAt:      expiresAt,
		LastActivityAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, err
	}
	zap.L().Info("user successfully authenticated", zap.String("wallet", wallet))
	return session, user, nil
}

func (s *Service) findOrCreateUser(ctx context.Context, wallet string) (*domain.User, error) {
	user, err := s.users.FindByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	user, err = s.users.Create(ctx, &domain.User{ID: uuid.NewString(), WalletAddress: wallet})
	if err != nil {
		zap.L().Error("can't create user: ", zap.Error(err))
		return nil, err
	}
	zap.L().Info("user registered", zap.String("wallet", wallet))
	return user, nil
}

// VerifySession accepts a token only while its session row is active.
func (s *Service) VerifySession(ctx context.Context, token string) (*auth.Identity, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}
	now := s.now()
	session, err := s.sessions.FindActive(ctx, token, now)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != claims.UserID {
		return nil, ErrSessionInvalid
	}
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		zap.L().Warn("can't touch session", zap.String("session", session.ID), zap.Error(err))
	}
	return &auth.Identity{
		UserID: claims.UserID,
		Wallet: claims.Wallet,
		Role:   s.role(claims.Wallet),
		Token:  token,
	}, nil
}

func (s *Service) CurrentUser(ctx context.Context, identity *auth.Identity) (*domain.User, error) {
	return s.users.FindByID(ctx, identity.UserID)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Deactivate(ctx, token)
}

func (s *Service) CompleteProfile(ctx context.Context, userID, username, displayName string) (*domain.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, &domain.ValidationError{Field: "username", Message: "3-32 letters, digits or underscores"}
	}
	if displayName == "" {
		displayName = username
	}
	return s.users.UpdateProfile(ctx, userID, username, displayName)
}

func (s *Service) role(wallet string) string {
	if s.cfg.IsAdmin(wallet) {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}
