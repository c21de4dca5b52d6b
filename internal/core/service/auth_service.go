package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/littlesprouts/center-api/internal/api/metrics"
	"github.com/littlesprouts/center-api/internal/core/domain"
	"github.com/littlesprouts/center-api/internal/core/ports"
)

const defaultSessionTTL = 24 * time.Hour

// dummyHash is compared against when login hits an unknown identifier, so
// that the response time does not reveal whether the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("enumeration-resistance"), bcrypt.MinCost)

// AuthService implements registration, password login, QR login, and the
// session lifecycle. Sessions are opaque ids held server-side; logging out
// destroys the record, so a stolen cookie dies with the session.
type AuthService struct {
	users      ports.UserRepository
	sessions   ports.SessionStore
	audit      ports.AuditSink
	baseURL    string
	sessionTTL time.Duration
	bcryptCost int
	logger     zerolog.Logger
}

func NewAuthService(users ports.UserRepository, sessions ports.SessionStore, audit ports.AuditSink, baseURL string, sessionTTL time.Duration, logger zerolog.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		audit:      audit,
		baseURL:    baseURL,
		sessionTTL: sessionTTL,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
	}
}

// WithBcryptCost overrides the hashing cost. Intended for tests, where the
// default cost dominates runtime.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, *domain.Session, error) {
	if input.Password != input.ConfirmPassword {
		return nil, nil, domain.ErrPasswordMismatch
	}

	if _, err := s.users.FindByUsername(ctx, input.Username); err == nil {
		return nil, nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil, err
	}
	if input.Email != "" {
		if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
			return nil, nil, domain.ErrEmailTaken
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: string(hash),
		// Signup never grants elevated roles, whatever the caller sent.
		Role:      domain.RoleParent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.issueSession(ctx, created.ID)
	if err != nil {
		return nil, nil, err
	}

	metrics.RegistrationsTotal.Inc()
	s.record(created.ID, domain.AuditRegister, "success", "")
	s.logger.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, session, nil
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, *domain.Session, error) {
	if identifier == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
			s.record("", domain.AuditLogin, "failure", "unknown identifier")
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
		s.record(user.ID, domain.AuditLogin, "failure", "bad password")
		return nil, nil, domain.ErrInvalidCredentials
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	metrics.LoginsTotal.WithLabelValues("password", "success").Inc()
	s.record(user.ID, domain.AuditLogin, "success", "")
	s.logger.Info().Str("user_id", user.ID).Msg("login")
	return user, session, nil
}

// findByIdentifier resolves a login identifier, username first, then email.
func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	return s.users.FindByEmail(ctx, identifier)
}

// Logout destroys the session. Succeeds even when no session exists, so a
// client with a stale cookie can always log out.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.record("", domain.AuditLogout, "success", "")
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input ports.UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Email != "" && input.Email != user.Email {
		if existing, err := s.users.FindByEmail(ctx, input.Email); err == nil && existing.ID != userID {
			return nil, domain.ErrEmailTaken
		} else if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		user.Email = input.Email
	}
	if input.FirstName != "" {
		user.FirstName = input.FirstName
	}
	if input.LastName != "" {
		user.LastName = input.LastName
	}
	user.UpdatedAt = time.Now().UTC()

	return s.users.Update(ctx, user)
}

// GenerateQR enrolls the user for QR login: a fresh token overwrites any
// previous one, implicitly revoking it. The returned URL embeds the user id
// and token in cleartext; whoever scans it holds a bearer credential.
func (s *AuthService) GenerateQR(ctx context.Context, userID string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}

	user.QRToken = token
	user.QREnabled = true
	user.UpdatedAt = time.Now().UTC()
	if _, err := s.users.Update(ctx, user); err != nil {
		return "", err
	}

	metrics.QRTokensIssuedTotal.Inc()
	s.record(userID, domain.AuditQREnroll, "success", "")

	q := url.Values{}
	q.Set("uid", user.ID)
	q.Set("token", token)
	return fmt.Sprintf("%s/auth/qr-login?%s", s.baseURL, q.Encode()), nil
}

// DisableQR clears the QR credential. Idempotent: disabling an account that
// never enrolled is a no-op success.
func (s *AuthService) DisableQR(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	user.QRToken = ""
	user.QREnabled = false
	user.UpdatedAt = time.Now().UTC()
	if _, err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.record(userID, domain.AuditQRDisable, "success", "")
	return nil
}

// QRLogin redeems a scanned credential. All failure causes collapse into
// ErrInvalidQRCode so a probe learns nothing about which check failed.
func (s *AuthService) QRLogin(ctx context.Context, userID, token string) (*domain.User, *domain.Session, error) {
	if userID == "" || token == "" {
		return nil, nil, domain.ErrInvalidQRCode
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("qr", "failure").Inc()
			s.record(userID, domain.AuditQRLogin, "failure", "unknown user")
			return nil, nil, domain.ErrInvalidQRCode
		}
		return nil, nil, err
	}

	if !user.QREnabled || user.QRToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.QRToken), []byte(token)) != 1 {
		metrics.LoginsTotal.WithLabelValues("qr", "failure").Inc()
		s.record(user.ID, domain.AuditQRLogin, "failure", "token rejected")
		return nil, nil, domain.ErrInvalidQRCode
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	metrics.LoginsTotal.WithLabelValues("qr", "success").Inc()
	s.record(user.ID, domain.AuditQRLogin, "success", "")
	s.logger.Info().Str("user_id", user.ID).Msg("qr login")
	return user, session, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// ChangeRole sets a user's role. Callers must already have passed the admin
// gate; the service only validates the target role.
func (s *AuthService) ChangeRole(ctx context.Context, userID, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	s.record(userID, domain.AuditRoleChange, "success", "role="+role)
	s.logger.Info().Str("user_id", userID).Str("role", role).Msg("role changed")
	return updated, nil
}

// issueSession creates and persists a fresh session. Both login paths end
// here, so a QR session is indistinguishable from a password one.
func (s *AuthService) issueSession(ctx context.Context, userID string) (*domain.Session, error) {
	id, err := newToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *AuthService) record(userID, action, outcome, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Enqueue(domain.AuditEvent{
		UserID:    userID,
		Action:    action,
		Outcome:   outcome,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

// newToken returns a 256-bit random value, base64 raw-URL encoded. Used for
// both session ids and QR tokens.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
