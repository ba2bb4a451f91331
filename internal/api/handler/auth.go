package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	jwt "github.com/golang-jwt/jwt/v5"

	"hostelwatch/backend/internal/config"
)

func jwtSecret() []byte {
	return []byte(config.Getenv("JWT_SECRET", "dev-only-secret"))
}

// generateJWT mints an identity token for a vit ID. The token carries
// identity only; roles and permissions are always re-resolved server-side.
func generateJWT(vitID string) (string, error) {
	claims := jwt.MapClaims{
		"vit_id": vitID,
		"exp":    time.Now().Add(time.Hour * 24).Unix(),
		"iss":    "hostelwatch-service",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

func parseVitID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	vit, ok := claims["vit_id"].(string)
	if !ok || vit == "" {
		return "", errors.New("missing vit_id claim")
	}
	return vit, nil
}

// RequireAuth extracts the bearer token and stores the caller's vit ID on
// the context. Authorization decisions happen in the ledger, never here.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
			return
		}
		vit, err := parseVitID(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("vit_id", vit)
		c.Next()
	}
}

// GetToken mints a token for a known directory entry.
func (h *Handler) GetToken(c *gin.Context) {
	vit := strings.ToUpper(strings.TrimSpace(c.Query("vit_id")))
	if vit == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vit_id is required"})
		return
	}
	user, err := h.Storage.UserByVit(vit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "directory lookup failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown vit_id"})
		return
	}

	token, err := generateJWT(vit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "vit_id": vit})
}
