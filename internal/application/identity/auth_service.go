package identity

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/mail"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/auth"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
)

// Template names used by the auth flows
const (
	templateWelcome       = "welcome"
	templatePasswordReset = "password_reset"
)

var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrAccountDeactivated = shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	ErrEmailNotConfirmed  = shared.NewDomainError("EMAIL_NOT_CONFIRMED", "Email address has not been confirmed")
	ErrTokenExpired       = shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	ErrTokenInvalid       = shared.NewDomainError("TOKEN_INVALID", "Invalid token")
	ErrTokenRevoked       = shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	ErrTokenMaxRefresh    = shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
)

// SupabaseAuth is the subset of the Supabase Auth API used here
type SupabaseAuth interface {
	Enabled() bool
	SignUp(ctx context.Context, email, password, fullName string) (*auth.SupabaseUser, *auth.SupabaseSession, error)
	SignInWithPassword(ctx context.Context, email, password string) (*auth.SupabaseSession, error)
	RecoverPassword(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*auth.SupabaseUser, error)
	GetUser(ctx context.Context, accessToken string) (*auth.SupabaseUser, error)
}

// Mailer sends templated emails
type Mailer interface {
	Send(ctx context.Context, to, templateName string, vars map[string]string) (*mail.EmailLog, error)
}

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	// FrontendURL builds the reset link when Supabase is not configured
	FrontendURL string
}

// AuthService proxies Supabase Auth and issues local tokens
type AuthService struct {
	users     identity.UserRepository
	supabase  SupabaseAuth
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	mailer    Mailer
	events    shared.EventPublisher
	config    AuthServiceConfig
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service. mailer, events and
// blacklist may be nil.
func NewAuthService(
	users identity.UserRepository,
	supabase SupabaseAuth,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	mailer Mailer,
	events shared.EventPublisher,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		supabase:  supabase,
		jwt:       jwtService,
		blacklist: blacklist,
		mailer:    mailer,
		events:    events,
		config:    config,
		logger:    logger,
	}
}

// SignUp registers an account in Supabase and mirrors it locally. Without
// Supabase the account is created with a local password.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*AuthResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "sign_up")
	defer span.End()
	log := logger.Or(ctx, s.logger)

	email := identity.NormalizeEmail(input.Email)
	if err := identity.ValidateEmail(email); err != nil {
		return nil, err
	}
	if input.DocumentType != "" {
		if err := identity.ValidateDocument(input.DocumentType, strings.TrimSpace(input.DocumentNumber)); err != nil {
			return nil, err
		}
	}

	if !s.supabaseEnabled() {
		return s.localSignUp(ctx, email, input)
	}

	sbUser, session, err := s.supabase.SignUp(ctx, email, input.Password, input.FullName)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Supabase sign up failed", zap.String("email", email), zap.Error(err))
		return nil, translateSupabaseError(err)
	}

	user, created, err := s.upsertFromSupabase(ctx, sbUser, input.FullName)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(user, input.Phone, input.DocumentType, input.DocumentNumber); err != nil {
		return nil, err
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	if created {
		s.sendWelcome(ctx, user)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	log.Info("User signed up", zap.String("user_id", user.ID.String()), zap.Bool("confirmed", session != nil))

	return &AuthResult{
		Tokens:               tokens,
		User:                 ToUserInfo(user),
		Supabase:             session,
		RequiresConfirmation: session == nil,
	}, nil
}

func (s *AuthService) localSignUp(ctx context.Context, email string, input SignUpInput) (*AuthResult, error) {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "An account with this email already exists")
	}

	user, err := identity.NewUser(email, input.FullName)
	if err != nil {
		return nil, err
	}
	if err := user.SetPassword(input.Password); err != nil {
		return nil, err
	}
	if err := applyProfile(user, input.Phone, input.DocumentType, input.DocumentNumber); err != nil {
		return nil, err
	}
	user.RecordLogin()
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.sendWelcome(ctx, user)

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	logger.Or(ctx, s.logger).Info("Local user signed up", zap.String("user_id", user.ID.String()))
	return &AuthResult{Tokens: tokens, User: ToUserInfo(user)}, nil
}

// SignIn logs in through Supabase, syncing the local user. Without Supabase
// it falls back to LegacyLogin.
func (s *AuthService) SignIn(ctx context.Context, input SignInInput) (*AuthResult, error) {
	if !s.supabaseEnabled() {
		return s.LegacyLogin(ctx, input)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "sign_in")
	defer span.End()

	email := identity.NormalizeEmail(input.Email)
	session, err := s.supabase.SignInWithPassword(ctx, email, input.Password)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Or(ctx, s.logger).Warn("Supabase sign in failed", zap.String("email", email), zap.Error(err))
		return nil, translateSupabaseError(err)
	}

	result, err := s.loginSupabaseUser(ctx, &session.User, "")
	if err != nil {
		return nil, err
	}
	result.Supabase = session
	return result, nil
}

// LegacyLogin checks a local bcrypt password for accounts created before
// Supabase or while it is not configured
func (s *AuthService) LegacyLogin(ctx context.Context, input SignInInput) (*AuthResult, error) {
	log := logger.Or(ctx, s.logger)
	email := identity.NormalizeEmail(input.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Warn("Legacy login for unknown email", zap.String("email", email))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(input.Password) {
		log.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	user.RecordLogin()
	if err := s.save(ctx, user); err != nil {
		log.Error("Failed to record login", zap.Error(err))
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	log.Info("User logged in with local password", zap.String("user_id", user.ID.String()))
	return &AuthResult{Tokens: tokens, User: ToUserInfo(user)}, nil
}

// SyncFromSupabaseToken resolves a Supabase access token (for example from an
// OAuth or magic link redirect) and exchanges it for local tokens
func (s *AuthService) SyncFromSupabaseToken(ctx context.Context, accessToken string) (*AuthResult, error) {
	if !s.supabaseEnabled() {
		return nil, shared.NewDomainError(shared.ErrExternalService.Code, "Supabase auth is not configured")
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "sync")
	defer span.End()

	sbUser, err := s.supabase.GetUser(ctx, accessToken)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, translateSupabaseError(err)
	}
	return s.loginSupabaseUser(ctx, sbUser, "")
}

func (s *AuthService) loginSupabaseUser(ctx context.Context, sbUser *auth.SupabaseUser, fullName string) (*AuthResult, error) {
	user, created, err := s.upsertFromSupabase(ctx, sbUser, fullName)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}
	user.RecordLogin()
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	if created {
		s.sendWelcome(ctx, user)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	logger.Or(ctx, s.logger).Info("User logged in", zap.String("user_id", user.ID.String()))
	return &AuthResult{Tokens: tokens, User: ToUserInfo(user)}, nil
}

// upsertFromSupabase finds the local user for a Supabase account. An existing
// user with the same email is linked; otherwise a new client user is created.
func (s *AuthService) upsertFromSupabase(ctx context.Context, sbUser *auth.SupabaseUser, fullName string) (*identity.User, bool, error) {
	if sbUser == nil || sbUser.ID == "" {
		return nil, false, ErrTokenInvalid
	}

	user, err := s.users.FindBySupabaseUID(ctx, sbUser.ID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	if fullName == "" {
		fullName = sbUser.FullName()
	}

	user, err = s.users.FindByEmail(ctx, sbUser.Email)
	switch {
	case err == nil:
		if err := user.LinkSupabase(sbUser.ID); err != nil {
			return nil, false, err
		}
		logger.Or(ctx, s.logger).Info("Linked existing user to Supabase",
			zap.String("user_id", user.ID.String()))
		return user, false, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, false, err
	}

	user, err = identity.NewSupabaseUser(sbUser.ID, sbUser.Email, fullName)
	if err != nil {
		return nil, false, err
	}
	if sbUser.Phone != "" {
		_ = user.UpdateProfile("", sbUser.Phone)
	}
	return user, true, nil
}

// RequestPasswordReset starts the reset flow. It reports success even for
// unknown emails.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	log := logger.Or(ctx, s.logger)
	email = identity.NormalizeEmail(email)
	if err := identity.ValidateEmail(email); err != nil {
		return err
	}

	if s.supabaseEnabled() {
		if err := s.supabase.RecoverPassword(ctx, email); err != nil {
			log.Warn("Supabase password recovery failed", zap.String("email", email), zap.Error(err))
		}
		return nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			log.Error("Password reset lookup failed", zap.Error(err))
		}
		return nil
	}
	if !user.IsActive || s.mailer == nil {
		return nil
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		log.Error("Failed to issue reset token", zap.Error(err))
		return nil
	}
	resetURL := strings.TrimSuffix(s.config.FrontendURL, "/") + "/restablecer?token=" + url.QueryEscape(tokens.AccessToken)
	if _, err := s.mailer.Send(ctx, user.Email, templatePasswordReset, map[string]string{
		"name":      user.FullName,
		"reset_url": resetURL,
	}); err != nil {
		log.Warn("Password reset email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

// ResetPassword sets a new password using the token from the reset link
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.supabaseEnabled() {
		if _, err := s.supabase.UpdatePassword(ctx, token, newPassword); err != nil {
			logger.Or(ctx, s.logger).Warn("Supabase password update failed", zap.Error(err))
			return translateSupabaseError(err)
		}
		return nil
	}

	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return translateTokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return err
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return ErrTokenInvalid
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	if err := s.save(ctx, user); err != nil {
		return err
	}
	if s.blacklist != nil {
		// every session issued before the reset stops working
		if err := s.blacklist.RevokeUser(ctx, user.ID.String(), s.jwt.RefreshTokenExpiration()); err != nil {
			logger.Or(ctx, s.logger).Warn("Failed to revoke sessions after reset", zap.Error(err))
		}
	}
	logger.Or(ctx, s.logger).Info("Password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// Refresh rotates a refresh token into a new pair. The presented refresh
// token is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		logger.Or(ctx, s.logger).Warn("Refresh token validation failed", zap.Error(err))
		return nil, translateTokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	tokens, err := s.jwt.RotateTokenPair(claims, subjectOf(user))
	if err != nil {
		return nil, translateTokenError(err)
	}
	s.revoke(ctx, claims)
	return &AuthResult{Tokens: tokens, User: ToUserInfo(user)}, nil
}

// Logout revokes the access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessClaims != nil {
		s.revoke(ctx, input.AccessClaims)
	}
	if input.RefreshToken != "" {
		if claims, err := s.jwt.ValidateRefreshToken(input.RefreshToken); err == nil {
			s.revoke(ctx, claims)
		}
	}
	if input.AccessClaims != nil {
		logger.Or(ctx, s.logger).Info("User logged out", zap.String("user_id", input.AccessClaims.UserID))
	}
	return nil
}

// Me returns the current user
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// UpdateProfile edits the contact and document details of the current user
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(input.FullName, input.Phone); err != nil {
		return nil, err
	}
	if input.DocumentType != "" {
		if err := user.SetDocument(input.DocumentType, input.DocumentNumber); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

func (s *AuthService) supabaseEnabled() bool {
	return s.supabase != nil && s.supabase.Enabled()
}

func (s *AuthService) save(ctx context.Context, user *identity.User) error {
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	if err := shared.PublishPending(ctx, s.events, user); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to publish user events", zap.Error(err))
	}
	return nil
}

func (s *AuthService) issueTokens(user *identity.User) (*auth.TokenPair, error) {
	tokens, err := s.jwt.GenerateTokenPair(subjectOf(user))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}
	return tokens, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, user *identity.User) {
	if s.mailer == nil {
		return
	}
	if _, err := s.mailer.Send(ctx, user.Email, templateWelcome, map[string]string{"name": user.FullName}); err != nil {
		logger.Or(ctx, s.logger).Warn("Welcome email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil {
		return nil
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		revoked, err = s.blacklist.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
		if err != nil {
			return err
		}
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

func (s *AuthService) revoke(ctx context.Context, claims *auth.Claims) {
	if s.blacklist == nil || claims.ID == "" {
		return
	}
	ttl := claims.RemainingTTL()
	if ttl <= 0 {
		return
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to revoke token", zap.Error(err))
	}
}

func subjectOf(user *identity.User) auth.Subject {
	return auth.Subject{UserID: user.ID, Email: user.Email, Role: string(user.Role)}
}

func applyProfile(user *identity.User, phone string, docType identity.DocumentType, docNumber string) error {
	if phone != "" {
		if err := user.UpdateProfile("", phone); err != nil {
			return err
		}
	}
	if docType != "" {
		return user.SetDocument(docType, docNumber)
	}
	return nil
}

func translateSupabaseError(err error) error {
	switch {
	case errors.Is(err, auth.ErrSupabaseInvalidCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, auth.ErrSupabaseUserExists):
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, "An account with this email already exists")
	case errors.Is(err, auth.ErrSupabaseWeakPassword):
		return shared.NewDomainError("INVALID_PASSWORD", "Password does not meet the requirements")
	case errors.Is(err, auth.ErrSupabaseEmailNotConfirmed):
		return ErrEmailNotConfirmed
	case errors.Is(err, auth.ErrInvalidToken):
		return ErrTokenInvalid
	case errors.Is(err, auth.ErrSupabaseDisabled), errors.Is(err, auth.ErrSupabaseUnavailable):
		return shared.NewDomainError(shared.ErrExternalService.Code, "Authentication service unavailable")
	}
	var apiErr *auth.SupabaseError
	if errors.As(err, &apiErr) && apiErr.Status < 500 {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, apiErr.Message)
	}
	return shared.NewDomainError(shared.ErrExternalService.Code, "Authentication service unavailable")
}

func translateTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return ErrTokenExpired
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return ErrTokenMaxRefresh
	case errors.Is(err, auth.ErrTokenRevoked):
		return ErrTokenRevoked
	}
	return ErrTokenInvalid
}
