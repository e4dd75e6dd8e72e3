package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTVerifier accepts HS256 bearer tokens whose subject is the user id.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Issue signs a token for uid with the given role. Used by tooling and tests.
func (j *JWTVerifier) Issue(uid, role string, expires time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  "masar",
		"sub":  uid,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(expires).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTVerifier) VerifyIDToken(_ context.Context, tokenStr string) (*Token, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("token has no subject")
	}
	return &Token{UID: sub, Role: roleClaim(claims), Claims: claims}, nil
}
