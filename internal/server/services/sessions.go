// Package services contains server-side business logic. SessionService
// registers users, verifies credentials and issues, rotates and revokes
// token pairs.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/passwords"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

const (
	// maxEmailLength matches the users.email column.
	maxEmailLength = 320
	// maxPasswordBytes is the bcrypt input limit, applied to every hasher.
	maxPasswordBytes = 72
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer mints access tokens. *auth.Signer satisfies it.
type TokenIssuer interface {
	Issue(userID string, role models.Role) (string, error)
}

// SessionService provides authentication-related operations:
//   - Register: create a user with the default role and open a session
//   - Login: verify credentials and open a session
//   - Refresh: consume a refresh token exactly once and open a new session
//   - Logout: revoke a refresh token
//
// Unknown users, wrong passwords and unusable refresh tokens all surface as
// common.ErrAuthentication so callers cannot tell them apart.
type SessionService struct {
	repomanager                  repomanager.RepositoryManager
	hasher                       passwords.Hasher
	signer                       TokenIssuer
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
	metrics                      *metrics.Metrics
	now                          func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewSessionService wires the service. m may be nil.
func NewSessionService(rm repomanager.RepositoryManager, h passwords.Hasher, signer TokenIssuer,
	cfg *config.Config, l logging.Logger, m *metrics.Metrics) *SessionService {
	return &SessionService{
		repomanager:                  rm,
		hasher:                       h,
		signer:                       signer,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       l.With("module", "sessions"),
		metrics:                      m,
		now:                          time.Now,
	}
}

// Register creates a user and returns their first token pair. The role is
// always models.RoleUser. A taken email yields *common.ConflictError.
func (s *SessionService) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return nil, err
		}
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, fmt.Errorf("register: %w", common.ErrorInternal)
	}

	var pair *TokenPair
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleUser,
		})
		if err != nil {
			return err
		}
		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		s.logger.Error(ctx, "registration failed", "error", err)
		return nil, fmt.Errorf("register: %w", err)
	}

	s.metrics.SessionIssued("register")
	return pair, nil
}

// Login verifies the password of the user registered under email and returns
// a new token pair. Existing sessions of the user stay valid.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	conn := s.repomanager.Conn()

	user, err := s.repomanager.Users(conn).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep the response time of unknown emails close to known ones
			_, _ = s.hasher.Verify(s.getDummyHash(), password)
			return nil, s.authFailed(ctx, "login")
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is unusable", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("login: %w", common.ErrorInternal)
	}
	if !ok {
		return nil, s.authFailed(ctx, "login")
	}

	pair, err := s.issuePair(ctx, conn, user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.metrics.SessionIssued("login")
	return pair, nil
}

// Refresh consumes refreshToken on behalf of callerUserID and returns a new
// pair. The token must exist, be unexpired and belong to the caller. Deleting
// the old token and storing the new one happen in one transaction, so of two
// concurrent calls with the same token exactly one succeeds.
func (s *SessionService) Refresh(ctx context.Context, refreshToken, callerUserID string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.repomanager.Conn()).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.authFailed(ctx, "refresh")
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if token.Expired(s.now()) || token.UserID != callerUserID {
		return nil, s.authFailed(ctx, "refresh")
	}

	var pair *TokenPair
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken)
		if err != nil {
			return err
		}
		if !deleted {
			// a concurrent rotation or logout got there first
			return common.ErrAuthentication
		}

		user, err := s.repomanager.Users(tx).GetUserByID(ctx, token.UserID)
		if err != nil {
			return err
		}

		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrAuthentication) {
			return nil, s.authFailed(ctx, "refresh")
		}
		s.logger.Error(ctx, "refresh token rotation failed", "user_id", token.UserID, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrRotationFailed, err)
	}

	s.metrics.SessionIssued("refresh")
	return pair, nil
}

// Logout revokes refreshToken. Unknown or already revoked tokens are not an
// error.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	deleted, err := s.repomanager.RefreshTokens(s.repomanager.Conn()).Delete(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if deleted {
		s.logger.Debug(ctx, "refresh token revoked")
	}
	return nil
}

// --- helpers below ---

func (s *SessionService) issuePair(ctx context.Context, db dbx.DBTX, user *models.User) (*TokenPair, error) {
	access, err := s.signer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := common.MakeRandHexString(common.RefreshTokenSize)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	if err := s.repomanager.RefreshTokens(db).Create(ctx, &models.RefreshToken{
		Token:     refresh,
		UserID:    user.ID,
		Expires:   now.Add(s.refreshTokenValidityDuration),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *SessionService) authFailed(ctx context.Context, op string) error {
	s.metrics.AuthFailed(op)
	s.logger.Info(ctx, "authentication rejected", "op", op)
	return common.ErrAuthentication
}

func (s *SessionService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func validateCredentials(email, password string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return &common.ValidationError{Field: "email", Reason: "must be a plain email address"}
	}
	if len(email) > maxEmailLength {
		return &common.ValidationError{Field: "email", Reason: fmt.Sprintf("must be at most %d characters", maxEmailLength)}
	}
	if password == "" {
		return &common.ValidationError{Field: "password", Reason: "must not be empty"}
	}
	if len(password) > maxPasswordBytes {
		return &common.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)}
	}
	return nil
}
