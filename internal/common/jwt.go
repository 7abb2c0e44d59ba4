package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the identity provider signs: who the caller is and which role they act in.
type Claims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role}
}

func GenerateToken(secret []byte, issuer string, ttl time.Duration, actor Actor) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	if !actor.Role.IsValid() {
		return "", fmt.Errorf("cannot sign token for role %q", actor.Role)
	}
	now := time.Now()
	claims := &Claims{
		UserID: actor.UserID,
		Role:   actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   actor.UserID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

func ValidToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("token carries unknown role %q", claims.Role)
	}
	return claims, nil
}

// PeekActor reads the actor from a token without checking its signature. Clients use it to
// preview guards locally; the server still validates every request.
func PeekActor(tokenString string) (Actor, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return Actor{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == "" || !claims.Role.IsValid() {
		return Actor{}, errors.New("token carries no usable actor")
	}
	return claims.Actor(), nil
}
