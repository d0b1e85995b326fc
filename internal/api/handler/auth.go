package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"anonpair/backend/internal/logger"
)

const (
	tokenTTL    = 12 * time.Hour
	tokenIssuer = "anonpair-admin"
)

var errAuthDisabled = errors.New("admin login is not configured")

// AdminClaims identify an admin API session.
type AdminClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// generateJWT signs a session token for the admin API.
func (h *Handler) generateJWT() (string, time.Time, error) {
	if len(h.jwtSecret) == 0 {
		return "", time.Time{}, errAuthDisabled
	}
	now := h.now()
	exp := now.Add(tokenTTL)
	claims := AdminClaims{
		SessionID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	return signed, exp, err
}

func (h *Handler) parseJWT(tokenString string) (*AdminClaims, error) {
	if len(h.jwtSecret) == 0 {
		return nil, errAuthDisabled
	}
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(h.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Login exchanges the admin password for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}
	if len(h.passwordHash) == 0 || len(h.jwtSecret) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errAuthDisabled.Error()})
		return
	}
	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		logger.Warn("admin login rejected", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}

	token, exp, err := h.generateJWT()
	if err != nil {
		logger.Error("sign admin token", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	logger.Info("admin login", "ip", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp.UTC()})
}

// AuthMiddleware requires a valid token in the Authorization header. Browsers
// cannot set headers on websocket upgrades, so the token query parameter is
// accepted as well.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if auth := c.GetHeader("Authorization"); auth != "" {
			if !strings.HasPrefix(auth, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
				return
			}
			tokenString = strings.TrimPrefix(auth, "Bearer ")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		claims, err := h.parseJWT(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		c.Set("session", claims.SessionID)
		c.Next()
	}
}
