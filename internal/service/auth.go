package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *model.User, startingCents int64) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetBySteamID(ctx context.Context, steamID string) (*model.User, error)
	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)
	UpdateLogin(ctx context.Context, id string, profile model.SteamProfile, role model.UserRole) (*model.User, error)
	SetBanned(ctx context.Context, id string, banned bool, reason *string) (*model.User, error)
	List(ctx context.Context, filter model.UserListFilter) ([]*model.User, error)
	Count(ctx context.Context, bannedOnly bool) (int, error)
}

// SteamAuthenticator runs the Steam OpenID 2.0 exchange
type SteamAuthenticator interface {
	LoginURL(state string) string
	Verify(ctx context.Context, params url.Values) (string, error)
}

// SteamProfiles fetches public Steam profiles
type SteamProfiles interface {
	PlayerSummary(ctx context.Context, steamID string) (*model.PlayerSummary, error)
}

// AdminList decides which Steam IDs are admins
type AdminList interface {
	IsAdmin(steamID string) bool
}

// AuthService handles Steam login and the backend session
type AuthService struct {
	users           UserRepository
	openID          SteamAuthenticator
	profiles        SteamProfiles
	tokens          *TokenService
	admins          AdminList
	startingBalance decimal.Decimal
	logger          *slog.Logger
}

// AuthServiceConfig holds dependencies for the auth service
type AuthServiceConfig struct {
	Users           UserRepository
	OpenID          SteamAuthenticator
	Profiles        SteamProfiles
	Tokens          *TokenService
	Admins          AdminList
	StartingBalance decimal.Decimal
	Logger          *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AuthService{
		users:           cfg.Users,
		openID:          cfg.OpenID,
		profiles:        cfg.Profiles,
		tokens:          cfg.Tokens,
		admins:          cfg.Admins,
		startingBalance: cfg.StartingBalance,
		logger:          cfg.Logger,
	}
}

// LoginURL returns the Steam sign-in redirect
func (s *AuthService) LoginURL(state string) string {
	return s.openID.LoginURL(state)
}

// CompleteLogin verifies the Steam assertion, upserts the user and opens a
// session
func (s *AuthService) CompleteLogin(ctx context.Context, params url.Values) (*model.AuthResponse, error) {
	steamID, err := s.openID.Verify(ctx, params)
	if err != nil {
		s.logger.Warn("steam openid verification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSteamLoginFailed, err)
	}

	profile := s.fetchProfile(ctx, steamID)
	role := model.UserRoleUser
	if s.admins.IsAdmin(steamID) {
		role = model.UserRoleAdmin
	}

	user, err := s.users.GetBySteamID(ctx, steamID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user, err = s.register(ctx, profile, role)
		if err != nil {
			return nil, err
		}
	} else {
		if user.Banned {
			return nil, ErrUserBanned
		}
		if profile.PersonaName == "" {
			profile.PersonaName = user.PersonaName
			profile.AvatarURL = user.AvatarURL
			profile.ProfileURL = user.ProfileURL
		}
		user, err = s.users.UpdateLogin(ctx, user.ID, profile, role)
		if err != nil {
			return nil, err
		}
	}

	return s.session(ctx, user)
}

// register creates the user together with the starting balance and its
// ledger row. Losing a registration race to a parallel login reuses that
// user.
func (s *AuthService) register(ctx context.Context, profile model.SteamProfile, role model.UserRole) (*model.User, error) {
	if profile.PersonaName == "" {
		profile.PersonaName = profile.SteamID
	}
	user := &model.User{
		SteamID:     profile.SteamID,
		PersonaName: profile.PersonaName,
		AvatarURL:   profile.AvatarURL,
		ProfileURL:  profile.ProfileURL,
		Role:        role,
	}
	var startingCents int64
	if s.startingBalance.IsPositive() {
		startingCents = model.ToCents(s.startingBalance)
	}
	if err := s.users.Create(ctx, user, startingCents); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			existing, getErr := s.users.GetBySteamID(ctx, profile.SteamID)
			if getErr != nil || existing == nil {
				return nil, err
			}
			return existing, nil
		}
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "steam_id", user.SteamID, "role", user.Role)
	return user, nil
}

func (s *AuthService) fetchProfile(ctx context.Context, steamID string) model.SteamProfile {
	profile := model.SteamProfile{SteamID: steamID}
	summary, err := s.profiles.PlayerSummary(ctx, steamID)
	if err != nil {
		s.logger.Warn("steam profile unavailable at login", "steam_id", steamID, "error", err)
		return profile
	}
	profile.PersonaName = summary.PersonaName
	profile.AvatarURL = summary.AvatarFull
	if profile.AvatarURL == "" {
		profile.AvatarURL = summary.Avatar
	}
	profile.ProfileURL = summary.ProfileURL
	return profile
}

// Refresh rotates a refresh token into a new session
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.AuthResponse, error) {
	userID, err := s.tokens.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Banned {
		return nil, ErrUserBanned
	}

	return s.session(ctx, user)
}

// Logout revokes every refresh token of the user
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.tokens.RevokeAllUserTokens(ctx, userID)
}

// Me returns the user together with their wallet
func (s *AuthService) Me(ctx context.Context, userID string) (*model.Me, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	wallet, err := s.users.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Me{User: user, Wallet: wallet}, nil
}

func (s *AuthService) session(ctx context.Context, user *model.User) (*model.AuthResponse, error) {
	pair, err := s.tokens.GenerateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// activeUser loads a user that is allowed to act
func activeUser(ctx context.Context, users UserRepository, userID string) (*model.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Banned {
		return nil, ErrUserBanned
	}
	return user, nil
}
