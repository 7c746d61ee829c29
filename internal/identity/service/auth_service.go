// Package service implements password registration, login and server-side sessions.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamos/backend/internal/db"
	identitydomain "teamos/backend/internal/identity/domain"
	"teamos/backend/internal/platform/apperr"
	"teamos/backend/internal/security"
	sessiondomain "teamos/backend/internal/session/domain"
	"teamos/backend/internal/storage"
	userdomain "teamos/backend/internal/user/domain"
)

const invalidCredentials = "invalid email or password"

// Session is an issued login session. Token goes into the session cookie.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	SessionID string
}

// AuthService implements register, login, session validation and logout.
type AuthService struct {
	store      storage.Store
	hasher     *security.Hasher
	tokens     *security.TokenProvider
	sessionTTL time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// NewAuthService returns an AuthService. sessionTTL bounds both the session row and its token.
func NewAuthService(store storage.Store, hasher *security.Hasher, tokens *security.TokenProvider, sessionTTL time.Duration, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		store:      store,
		hasher:     hasher,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user with a local identity and signs them in.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*Session, error) {
	email = userdomain.NormalizeEmail(email)
	if err := userdomain.ValidateEmail(email); err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}
	if err := security.ValidatePassword(password); err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}
	existing, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict("email already registered")
	}
	now := s.now()
	user := &userdomain.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, apperr.InvalidArgument(err.Error())
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	err = s.store.InTx(ctx, func(tx storage.Repos) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Identities().Create(ctx, &identitydomain.Identity{
			ID:           uuid.New().String(),
			UserID:       user.ID,
			Provider:     identitydomain.IdentityProviderLocal,
			ProviderID:   email,
			PasswordHash: hashed,
			CreatedAt:    now,
		})
	})
	if errors.Is(err, db.ErrDuplicate) {
		return nil, apperr.Conflict("email already registered")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.EstablishSession(ctx, user.ID)
}

// Login verifies the password and opens a session. Unknown email, missing credential and wrong
// password all return the same Unauthenticated error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = userdomain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Unauthenticated(invalidCredentials)
	}
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.Unauthenticated(invalidCredentials)
	}
	ident, err := s.store.Identities().GetByUserAndProvider(ctx, user.ID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ident.HasPassword() {
		return nil, apperr.Unauthenticated(invalidCredentials)
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		return nil, apperr.Unauthenticated(invalidCredentials)
	}
	return s.EstablishSession(ctx, user.ID)
}

// EstablishSession persists a session for userID and returns its signed token.
func (s *AuthService) EstablishSession(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, apperr.InvalidArgument("user id is required")
	}
	now := s.now()
	sess := &sessiondomain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return nil, apperr.Internal(err)
	}
	token, err := s.tokens.IssueSession(sess.ID, userID, sess.ExpiresAt)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{ID: sess.ID, UserID: userID, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Authenticate returns the principal behind token. A bad signature, an unknown, revoked or expired
// session all yield Unauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, apperr.ErrUnauthenticated
	}
	sessionID, userID, err := s.tokens.ValidateSession(token)
	if err != nil {
		return nil, apperr.Unauthenticated("session is invalid or has expired")
	}
	sess, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if sess == nil || sess.UserID != userID || !sess.Active(s.now()) {
		return nil, apperr.Unauthenticated("session is invalid or has expired")
	}
	return &Principal{UserID: userID, SessionID: sessionID}, nil
}

// Logout revokes the session named by token. Invalid tokens are ignored so sign-out always succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	sessionID, _, err := s.tokens.ValidateSession(token)
	if err != nil {
		return nil
	}
	if err := s.store.Sessions().Revoke(ctx, sessionID); err != nil {
		s.log.Warn("revoke session failed", zap.String("session_id", sessionID), zap.Error(err))
		return apperr.Internal(err)
	}
	return nil
}
