package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSubject is returned for a well-signed token whose subject is not
// a user id
var ErrInvalidSubject = errors.New("token subject is not a user id")

// CreateToken creates a new JWT token for the given user ID
// The token is signed with HS256 and expires after sessionDays
func CreateToken(userID int64, secret string, sessionDays int) (string, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(sessionDays) * 24 * time.Hour)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies a JWT token and returns the identity it carries.
// Malformed, wrongly signed, expired and non-numeric subject tokens all fail.
func ValidateToken(tokenString, secret string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidSubject
	}

	return Identity{UserID: userID}, nil
}
