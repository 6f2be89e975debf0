package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/greenloop-event-service/pkg/response"
)

// Context keys set by JWTMiddleware
const (
	ContextKeyUserID   = "user_id"
	ContextKeyEmail    = "user_email"
	ContextKeyUsername = "username"
	ContextKeyRole     = "role"
)

// Headers injected by the API gateway after it has verified the caller
const (
	HeaderUserID   = "X-User-ID"
	HeaderEmail    = "X-User-Email"
	HeaderUsername = "X-Username"
	HeaderRole     = "X-User-Role"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the access token payload issued by the auth service
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTConfig holds configuration for the JWT middleware
type JWTConfig struct {
	Secret string
	Issuer string
	// SkipPaths are served without authentication
	SkipPaths []string
	// TrustGatewayHeaders falls back to X-User-* headers when no bearer
	// token is present. Only enable behind a gateway that strips these
	// headers from client traffic.
	TrustGatewayHeaders bool
}

// JWTMiddleware authenticates the caller and stores its identity in the
// gin context
func JWTMiddleware(config *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, path := range config.SkipPaths {
			if matchPath(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if header == "" && config.TrustGatewayHeaders && c.GetHeader(HeaderUserID) != "" {
			c.Set(ContextKeyUserID, c.GetHeader(HeaderUserID))
			c.Set(ContextKeyEmail, c.GetHeader(HeaderEmail))
			c.Set(ContextKeyUsername, c.GetHeader(HeaderUsername))
			c.Set(ContextKeyRole, strings.ToLower(c.GetHeader(HeaderRole)))
			c.Next()
			return
		}

		claims, err := parseBearer(header, config)
		if err != nil {
			msg := "Invalid or missing token"
			if errors.Is(err, ErrTokenExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized(msg))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeyRole, strings.ToLower(claims.Role))
		c.Next()
	}
}

func parseBearer(header string, config *JWTConfig) (*Claims, error) {
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrMissingToken
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken signs an HS256 access token. Used by tooling and tests; the
// auth service issues production tokens.
func GenerateToken(secret, issuer string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// RequireRole aborts with 403 unless the caller has one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := GetRole(c)
		for _, r := range roles {
			if strings.EqualFold(role, r) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Forbidden("Insufficient permissions"))
	}
}

// GetUserID returns the authenticated user id
func GetUserID(c *gin.Context) (string, bool) {
	return getString(c, ContextKeyUserID)
}

// GetEmail returns the authenticated user email
func GetEmail(c *gin.Context) (string, bool) {
	return getString(c, ContextKeyEmail)
}

// GetUsername returns the authenticated username
func GetUsername(c *gin.Context) (string, bool) {
	return getString(c, ContextKeyUsername)
}

// GetRole returns the authenticated role, lower-cased
func GetRole(c *gin.Context) (string, bool) {
	return getString(c, ContextKeyRole)
}

func getString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func matchPath(path, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return path == pattern
}
