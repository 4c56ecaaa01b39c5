package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/keygate-dev/keygate/internal/domain"
	internal_errors "github.com/keygate-dev/keygate/internal/errors"
	"github.com/keygate-dev/keygate/internal/logger"
)

// Kind selects which signing key and lifetime a token uses. Access and
// refresh tokens are signed with different secrets, so a leaked access
// key cannot mint refresh tokens.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

// ExpiredError marks a structurally valid token that is past its expiry.
// ExpiredAt carries the original expiry instant for the client.
type ExpiredError struct {
	ExpiredAt time.Time
}

func (e *ExpiredError) Error() string {
	return "Token expired"
}

type JwtService interface {
	NewAccessToken(userId domain.UserId) (string, error)
	NewRefreshToken(userId domain.UserId) (string, error)
	DecodeToken(jwtStr string, kind Kind) (domain.UserId, error)
}

type Jwt struct {
	accessKey  string
	refreshKey string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(accessKey, refreshKey string, accessTTL, refreshTTL time.Duration) *Jwt {
	return &Jwt{accessKey, refreshKey, accessTTL, refreshTTL}
}

func (j *Jwt) NewAccessToken(userId domain.UserId) (string, error) {
	return j.newToken(userId, j.accessKey, j.accessTTL)
}

func (j *Jwt) NewRefreshToken(userId domain.UserId) (string, error) {
	return j.newToken(userId, j.refreshKey, j.refreshTTL)
}

func (j *Jwt) newToken(userId domain.UserId, key string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{}
	claims["uid"] = userId
	claims["exp"] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(key))
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", errors.New("Can't create token")
	}

	return tokenString, nil
}

// DecodeToken validates signature and expiry and returns the user id.
// Expired tokens fail with *ExpiredError; every other failure collapses
// to a single 401 so callers cannot probe token internals.
func (j *Jwt) DecodeToken(jwtStr string, kind Kind) (domain.UserId, error) {
	key := j.accessKey
	if kind == Refresh {
		key = j.refreshKey
	}

	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		// Verify signing algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(key), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && token != nil {
			if exp, expErr := token.Claims.GetExpirationTime(); expErr == nil && exp != nil {
				return 0, &ExpiredError{ExpiredAt: exp.Time}
			}
		}
		return 0, &internal_errors.ErrorWithStatusCode{Message: "Invalid token", StatusCode: http.StatusUnauthorized}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, &internal_errors.ErrorWithStatusCode{Message: "Invalid token", StatusCode: http.StatusUnauthorized}
	}

	uid, ok := claims["uid"].(float64)
	if !ok {
		return 0, &internal_errors.ErrorWithStatusCode{Message: "Invalid token", StatusCode: http.StatusUnauthorized}
	}

	return domain.UserId(uid), nil
}
