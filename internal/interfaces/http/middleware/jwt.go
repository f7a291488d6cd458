package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/infrastructure/auth"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "user_id"
	JWTEmailKey   = "jwt_email"
	JWTRoleKey    = "jwt_role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	// AccessTokenQueryParam carries the token for EventSource clients,
	// which cannot set headers
	AccessTokenQueryParam = "access_token"
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// TokenBlacklist is optional; revocation is not checked without it
	TokenBlacklist auth.TokenBlacklist
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't require authentication
	SkipPathPrefixes []string
	// AllowQueryToken accepts ?access_token= when no header is sent
	AllowQueryToken bool
	// OnError replaces the default 401 response
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(jwtService *auth.JWTService, blacklist auth.TokenBlacklist) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
	})
}

// JWTAuthMiddlewareWithConfig creates JWT authentication middleware with custom config
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		tokenString, msg := extractToken(c, cfg.AllowQueryToken)
		if tokenString == "" {
			handleAuthError(c, cfg, errMissingToken, msg)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		if revoked := isRevoked(c, cfg, claims); revoked != nil {
			handleAuthError(c, cfg, auth.ErrTokenRevoked, revoked.Error())
			return
		}

		setClaims(c, claims)

		if cfg.Logger != nil {
			cfg.Logger.Debug("JWT authentication successful",
				zap.String("user_id", claims.UserID),
				zap.String("role", claims.Role))
		}
		c.Next()
	}
}

// OptionalJWTAuthMiddleware extracts claims when a valid token is present and
// lets anonymous requests through. Used by public routes that behave
// differently for signed-in customers (checkout, quote requests).
func OptionalJWTAuthMiddleware(jwtService *auth.JWTService, blacklist auth.TokenBlacklist) gin.HandlerFunc {
	cfg := JWTMiddlewareConfig{JWTService: jwtService, TokenBlacklist: blacklist}
	return func(c *gin.Context) {
		tokenString, _ := extractToken(c, false)
		if tokenString == "" {
			c.Next()
			return
		}
		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil || isRevoked(c, cfg, claims) != nil {
			c.Next()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

func extractToken(c *gin.Context, allowQuery bool) (string, string) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if authHeader == "" {
		if allowQuery {
			if t := c.Query(AccessTokenQueryParam); t != "" {
				return t, ""
			}
		}
		return "", "Missing authorization header"
	}
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return "", "Invalid authorization header format"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
	if token == "" {
		return "", "Missing token"
	}
	return token, ""
}

var (
	errMissingToken = errors.New("missing bearer token")
	errJTIRevoked   = errors.New("token has been revoked")
	errUserRevoked  = errors.New("user session has been invalidated")
)

// isRevoked fails open when the blacklist store is unreachable
func isRevoked(c *gin.Context, cfg JWTMiddlewareConfig, claims *auth.Claims) error {
	if cfg.TokenBlacklist == nil {
		return nil
	}
	ctx := c.Request.Context()

	if claims.ID != "" {
		revoked, err := cfg.TokenBlacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			logger.Or(ctx, cfg.Logger).Error("Failed to check token blacklist",
				zap.String("jti", claims.ID), zap.Error(err))
		} else if revoked {
			return errJTIRevoked
		}
	}

	if claims.UserID != "" {
		revoked, err := cfg.TokenBlacklist.IsUserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
		if err != nil {
			logger.Or(ctx, cfg.Logger).Error("Failed to check user revocation",
				zap.String("user_id", claims.UserID), zap.Error(err))
		} else if revoked {
			return errUserRevoked
		}
	}
	return nil
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(JWTClaimsKey, claims)
	c.Set(JWTUserIDKey, claims.UserID)
	c.Set(JWTEmailKey, claims.Email)
	c.Set(JWTRoleKey, claims.Role)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
}

func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}

	logger.Or(c.Request.Context(), cfg.Logger).Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path))

	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = "TOKEN_EXPIRED", "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, msg = "TOKEN_REVOKED", "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidTokenType), errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrInvalidToken):
		code, msg = "TOKEN_INVALID", "Invalid token"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, msg, GetRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID of the authenticated caller
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetJWTEmail retrieves the email of the authenticated caller
func GetJWTEmail(c *gin.Context) string {
	return c.GetString(JWTEmailKey)
}

// GetJWTRole retrieves the role of the authenticated caller
func GetJWTRole(c *gin.Context) string {
	return c.GetString(JWTRoleKey)
}
