package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	"todo_collab/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/thejerf/abtime"
)

var (
	TokenAuth *jwtauth.JWTAuth
	tokenTTL  time.Duration
	clock     abtime.AbstractTime = abtime.NewRealTime()
)

func InitJWT(key []byte, ttl time.Duration) {
	TokenAuth = jwtauth.New("HS256", key, nil)
	tokenTTL = ttl
}

// SetClock replaces the clock used for iat/exp.
func SetClock(c abtime.AbstractTime) {
	clock = c
}

type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

func GenerateToken(userID int64, role model.Role) (*IssuedToken, error) {
	now := clock.Now()
	exp := now.Add(tokenTTL)
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"user_id": strconv.FormatInt(userID, 10),
		"role":    string(role),
		"jti":     jti,
		"exp":     exp.Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Token: tokenString, ID: jti, ExpiresAt: time.Unix(exp.Unix(), 0)}, nil
}

// Helper functions to extract claims, used by the authenticator middleware.
func GetUserIDFromClaims(claims jwt.MapClaims) (int64, error) {
	raw, ok := claims["user_id"].(string)
	if !ok {
		return 0, errors.New("user_id claim is missing or not a string")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("user_id claim %q is not a valid id", raw)
	}
	return id, nil
}

func GetUserRoleFromClaims(claims jwt.MapClaims) (model.Role, error) {
	raw, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return model.ParseRole(raw)
}

func GetTokenIDFromClaims(claims jwt.MapClaims) (string, error) {
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return "", errors.New("jti claim is missing or not a string")
	}
	return jti, nil
}

// GetExpiryFromClaims accepts both the parsed (time.Time) and the raw
// numeric form of the exp claim.
func GetExpiryFromClaims(claims jwt.MapClaims) (time.Time, error) {
	switch exp := claims["exp"].(type) {
	case time.Time:
		return exp, nil
	case float64:
		return time.Unix(int64(exp), 0), nil
	case int64:
		return time.Unix(exp, 0), nil
	case int:
		return time.Unix(int64(exp), 0), nil
	}
	return time.Time{}, errors.New("exp claim is missing or malformed")
}
