package rest

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"bookstore/internal/models"
)

// DecodeToken extracts the identity claims from an access token without
// verifying its signature. The token is only used as an opaque bearer
// credential; verification is the server's job.
func DecodeToken(token string) (models.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.User{}, fmt.Errorf("parse token: %w", err)
	}

	user := models.User{}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		user.Role = role
	}
	if user.Email == "" {
		return models.User{}, fmt.Errorf("token carries no email claim")
	}
	return user, nil
}
