package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/keygate-dev/keygate/internal/domain"
	"github.com/keygate-dev/keygate/internal/errors"
	"github.com/keygate-dev/keygate/internal/jwt"
	"github.com/keygate-dev/keygate/internal/logger"
	"github.com/keygate-dev/keygate/internal/token"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

type AuthService interface {
	Register(name, email, password, passwordConfirm string) (domain.User, error)
	Login(email, password string) (domain.User, TokenPair, error)
	Refresh(refreshToken string) (domain.User, TokenPair, error)
	Profile(id domain.UserId) (domain.User, error)
	VerifyEmail(plaintextToken string) error
	ForgotPassword(email string) error
	ResetPassword(plaintextToken, password, passwordConfirm string) error
}

// TokenPair is one session issuance: the access token goes into the
// response body, the refresh token only ever into the cookie.
type TokenPair struct {
	Access  string
	Refresh string
}

type Auth struct {
	storage AuthStorage
	email   Notifier
	jwt     jwt.JwtService
}

type AuthStorage interface {
	SaveUser(user domain.User) (domain.UserId, error)
	UserByEmail(email string) (domain.User, error)
	UserById(id domain.UserId) (domain.User, error)
	SavePasswordReset(id domain.UserId, data domain.TokenData) error
	ConsumeEmailVerification(digest string, now time.Time) error
	ConsumePasswordReset(digest, newPassHash string, now time.Time) error
}

type Notifier interface {
	IsCorrect(email string) error
	SendVerification(recipientEmail, plaintextToken string) error
	SendPasswordReset(recipientEmail, plaintextToken string) error
}

func NewAuth(storage AuthStorage, email Notifier, jwt jwt.JwtService) *Auth {
	return &Auth{
		storage: storage,
		email:   email,
		jwt:     jwt,
	}
}

// Register creates an unverified user, stores the digest of a fresh
// verification token and mails the plaintext to the new address.
func (a *Auth) Register(name, email, password, passwordConfirm string) (domain.User, error) {
	email = strings.ToLower(email)

	if strings.TrimSpace(name) == "" {
		return domain.User{}, &errors.ErrorWithStatusCode{Message: "Name is required", StatusCode: http.StatusBadRequest}
	}
	if err := a.email.IsCorrect(email); err != nil {
		return domain.User{}, err
	}
	if err := validatePassword(password, passwordConfirm); err != nil {
		return domain.User{}, err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return domain.User{}, err
	}

	verification, err := token.Issue(token.EmailVerification)
	if err != nil {
		logger.Log.Error("failed to issue verification token", "error", err)
		return domain.User{}, err
	}

	user := domain.User{
		Name:     name,
		Email:    email,
		PassHash: string(passHash),
		Role:     domain.RoleUser,
		EmailVerification: &domain.TokenData{
			Digest:  verification.Digest,
			Expires: verification.Expires,
		},
	}

	id, err := a.storage.SaveUser(user)
	if err != nil {
		return domain.User{}, err
	}
	user.Id = id
	user.CreatedAt = time.Now().UTC()

	if err := a.email.SendVerification(email, verification.Plaintext); err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// Login checks credentials and issues an access/refresh token pair.
// Unknown email and wrong password produce the identical failure so
// accounts cannot be enumerated.
func (a *Auth) Login(email, password string) (domain.User, TokenPair, error) {
	email = strings.ToLower(email)

	invalidCreds := &errors.ErrorWithStatusCode{Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}

	user, err := a.storage.UserByEmail(email)
	if err != nil {
		if errors.IsNotFound(err) {
			return domain.User{}, TokenPair{}, invalidCreds
		}
		return domain.User{}, TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(password)); err != nil {
		logger.Log.Debug("password verification failed", "user_id", user.Id)
		return domain.User{}, TokenPair{}, invalidCreds
	}

	if !user.IsEmailVerified {
		return domain.User{}, TokenPair{}, &errors.ErrorWithStatusCode{
			Message:    "Please verify your email first. Check your inbox for the verification link.",
			StatusCode: http.StatusForbidden,
		}
	}

	pair, err := a.issueTokens(user.Id)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}

	return user, pair, nil
}

// Refresh rotates the session: a valid refresh token yields a new access
// token and a new refresh token. The previous refresh token stays valid
// until its own expiry since tokens are stateless.
func (a *Auth) Refresh(refreshToken string) (domain.User, TokenPair, error) {
	invalid := &errors.ErrorWithStatusCode{Message: "Invalid or expired refresh token", StatusCode: http.StatusUnauthorized}

	uid, err := a.jwt.DecodeToken(refreshToken, jwt.Refresh)
	if err != nil {
		return domain.User{}, TokenPair{}, invalid
	}

	user, err := a.storage.UserById(uid)
	if err != nil {
		if errors.IsNotFound(err) {
			return domain.User{}, TokenPair{}, invalid
		}
		return domain.User{}, TokenPair{}, err
	}

	pair, err := a.issueTokens(user.Id)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}

	return user, pair, nil
}

func (a *Auth) Profile(id domain.UserId) (domain.User, error) {
	return a.storage.UserById(id)
}

// VerifyEmail consumes a live verification token. Wrong and expired
// tokens are indistinguishable to the caller.
func (a *Auth) VerifyEmail(plaintextToken string) error {
	digest := token.Digest(plaintextToken)
	if err := a.storage.ConsumeEmailVerification(digest, time.Now().UTC()); err != nil {
		if errors.IsNotFound(err) {
			return &errors.ErrorWithStatusCode{Message: "Invalid or expired verification token", StatusCode: http.StatusBadRequest}
		}
		return err
	}
	return nil
}

// ForgotPassword issues a reset token for a registered email and is a
// silent no-op otherwise. Callers respond identically in both cases.
func (a *Auth) ForgotPassword(email string) error {
	email = strings.ToLower(email)

	if err := a.email.IsCorrect(email); err != nil {
		return err
	}

	user, err := a.storage.UserByEmail(email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}

	reset, err := token.Issue(token.PasswordReset)
	if err != nil {
		logger.Log.Error("failed to issue reset token", "error", err)
		return err
	}

	data := domain.TokenData{Digest: reset.Digest, Expires: reset.Expires}
	if err := a.storage.SavePasswordReset(user.Id, data); err != nil {
		return err
	}

	return a.email.SendPasswordReset(email, reset.Plaintext)
}

// ResetPassword consumes a live reset token and replaces the password
// hash in the same storage operation.
func (a *Auth) ResetPassword(plaintextToken, password, passwordConfirm string) error {
	if err := validatePassword(password, passwordConfirm); err != nil {
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return err
	}

	digest := token.Digest(plaintextToken)
	if err := a.storage.ConsumePasswordReset(digest, string(passHash), time.Now().UTC()); err != nil {
		if errors.IsNotFound(err) {
			return &errors.ErrorWithStatusCode{Message: "Invalid or expired password reset token", StatusCode: http.StatusBadRequest}
		}
		return err
	}
	return nil
}

func (a *Auth) issueTokens(id domain.UserId) (TokenPair, error) {
	access, err := a.jwt.NewAccessToken(id)
	if err != nil {
		logger.Log.Error("failed to create access token", "user_id", id, "error", err)
		return TokenPair{}, err
	}
	refresh, err := a.jwt.NewRefreshToken(id)
	if err != nil {
		logger.Log.Error("failed to create refresh token", "user_id", id, "error", err)
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func validatePassword(password, passwordConfirm string) error {
	if password != passwordConfirm {
		return &errors.ErrorWithStatusCode{Message: "Passwords do not match", StatusCode: http.StatusBadRequest}
	}
	if len(password) < minPasswordLen {
		return &errors.ErrorWithStatusCode{Message: "Password must be at least 6 characters", StatusCode: http.StatusBadRequest}
	}
	return nil
}
