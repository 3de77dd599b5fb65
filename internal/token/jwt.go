package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents JWT claims for the session-creation API.
type Claims struct {
	jwt.RegisteredClaims
	LecturerID uuid.UUID `json:"lecturer_id"`
	Role       string    `json:"role"`
}

// JWT issues and validates lecturer access tokens backed by symmetric HMAC.
type JWT struct {
	secretKey string
}

// NewJWT creates a new JWT token manager with the provided secret key.
func NewJWT(secretKey string) *JWT {
	return &JWT{secretKey: secretKey}
}

const (
	accessTTL    = 12 * time.Hour
	roleLecturer = "lecturer"
)

// GenerateLecturerToken creates an access token for a lecturer or course rep.
func (j *JWT) GenerateLecturerToken(lecturerID uuid.UUID) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTTL)),
		},
		LecturerID: lecturerID,
		Role:       roleLecturer,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ParseLecturerToken validates a token and extracts the lecturer ID.
func (j *JWT) ParseLecturerToken(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("access token is invalid")
	}
	if claims.Role != roleLecturer {
		return uuid.Nil, fmt.Errorf("role mismatch: %s", claims.Role)
	}
	if claims.LecturerID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("lecturer id is missing")
	}
	return claims.LecturerID, nil
}
