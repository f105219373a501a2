package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// authConfig holds the secret signing key and the bcrypt hash of the
// single static operator token this service accepts. There is no user
// model here: the arena has one operator, not a multi-tenant audience.
type authConfig struct {
	jwtSecret    []byte
	operatorHash string
}

func newAuthConfig(jwtSecret, operatorHash string) *authConfig {
	return &authConfig{jwtSecret: []byte(jwtSecret), operatorHash: operatorHash}
}

var errInvalidToken = errors.New("invalid or expired token")

// issueToken mints a 24h JWT once the operator has presented the
// correct static token to /auth/login.
func (a *authConfig) issueToken() (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "operator",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *authConfig) verifyOperatorToken(candidate string) bool {
	if a.operatorHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.operatorHash), []byte(candidate)) == nil
}

func (a *authConfig) parseToken(raw string) error {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return errInvalidToken
	}
	return nil
}

// handleLogin exchanges the static operator token for a bearer JWT.
func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !s.auth.verifyOperatorToken(req.Token) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid operator token"})
		return
	}
	signed, err := s.auth.issueToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed})
}

// requireAuth guards the mutating endpoints (create_session, start,
// pause, resume, stop). Read-only endpoints (state, events, ws) stay open so a
// dashboard can observe without a token.
func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	if err := s.auth.parseToken(raw); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Next()
}
