package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/keygate-dev/keygate/internal/api"
	"github.com/keygate-dev/keygate/internal/domain"
	"github.com/keygate-dev/keygate/internal/jwt"
	"github.com/keygate-dev/keygate/internal/utils"
)

// Key to store the authenticated user id in the request context
type key int

const UserIdKey key = 0

// Auth holds dependencies for the authentication middleware.
type Auth struct {
	jwtService jwt.JwtService
	storage    UserStorage
}

// UserStorage is needed for the role gate: the role is not embedded in
// the access token, so a role change takes effect on the very next
// guarded request.
type UserStorage interface {
	UserById(id domain.UserId) (domain.User, error)
}

func NewAuth(jwtService jwt.JwtService, storage UserStorage) *Auth {
	return &Auth{
		jwtService: jwtService,
		storage:    storage,
	}
}

// NeedAuth returns middleware that requires a valid access token.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return a.auth(false)
}

// AdminOnly returns middleware that additionally requires the admin role.
func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return a.auth(true)
}

var errNoToken = stderrors.New("no token")

// extractUserId pulls the access token from the request and validates it.
func (a *Auth) extractUserId(r *http.Request) (domain.UserId, error) {
	// Try the cookie first (browser clients), then the Authorization
	// header (API/mobile clients).
	var tokenString string
	accessCookie, err := r.Cookie("accessToken")
	if err == nil {
		tokenString = accessCookie.Value
	} else if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = token
	}

	if tokenString == "" {
		return 0, errNoToken
	}

	return a.jwtService.DecodeToken(tokenString, jwt.Access)
}

func (a *Auth) auth(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := a.extractUserId(r)
			if err != nil {
				var expired *jwt.ExpiredError
				switch {
				case stderrors.Is(err, errNoToken):
					utils.WriteJSON(w, http.StatusUnauthorized, api.ErrorResponse{Success: false, Message: "No token provided"})
				case stderrors.As(err, &expired):
					// The expiry instant lets the client tell "refresh
					// and retry" apart from a malformed credential.
					utils.WriteJSON(w, http.StatusUnauthorized, api.ErrorResponse{Success: false, Message: "Token expired", ExpiredAt: &expired.ExpiredAt})
				default:
					utils.WriteJSON(w, http.StatusUnauthorized, api.ErrorResponse{Success: false, Message: "Invalid token"})
				}
				return
			}

			if adminOnly {
				user, err := a.storage.UserById(uid)
				if err != nil {
					utils.WriteJSON(w, http.StatusUnauthorized, api.ErrorResponse{Success: false, Message: "Invalid token"})
					return
				}
				if !user.IsAdmin() {
					utils.WriteJSON(w, http.StatusForbidden, api.ErrorResponse{Success: false, Message: "Admin access required"})
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserIdKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIdFromContext retrieves the authenticated user id from the context.
func GetUserIdFromContext(r *http.Request) (domain.UserId, bool) {
	uid, ok := r.Context().Value(UserIdKey).(domain.UserId)
	return uid, ok
}
