package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/keygate-dev/keygate/internal/domain"
	"github.com/keygate-dev/keygate/internal/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserStorage struct {
	UserByIdFunc func(id domain.UserId) (domain.User, error)
}

func (m *mockUserStorage) UserById(id domain.UserId) (domain.User, error) {
	if m.UserByIdFunc != nil {
		return m.UserByIdFunc(id)
	}
	return domain.User{Id: id, Role: domain.RoleUser}, nil
}

func okHandler(called *bool, gotUid *domain.UserId) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if uid, ok := GetUserIdFromContext(r); ok {
			*gotUid = uid
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestNeedAuth(t *testing.T) {
	j := jwt.New("accessKey", "refreshKey", 15*time.Minute, 7*24*time.Hour)
	expiredJwt := jwt.New("accessKey", "refreshKey", -time.Minute, 7*24*time.Hour)

	validToken, err := j.NewAccessToken(42)
	require.NoError(t, err)
	expiredToken, err := expiredJwt.NewAccessToken(42)
	require.NoError(t, err)
	refreshToken, err := j.NewRefreshToken(42)
	require.NoError(t, err)

	tests := []struct {
		name        string
		setup       func(r *http.Request)
		wantStatus  int
		wantMessage string
		wantCalled  bool
		wantExpired bool
	}{
		{
			name:        "no token",
			setup:       func(r *http.Request) {},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "No token provided",
		},
		{
			name: "valid token in cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "accessToken", Value: validToken})
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name: "valid token in bearer header",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+validToken)
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name: "expired token carries the expiry instant",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+expiredToken)
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Token expired",
			wantExpired: true,
		},
		{
			name: "refresh token is not an access token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+refreshToken)
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid token",
		},
		{
			name: "garbage token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer not.a.token")
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuth(j, &mockUserStorage{})
			called := false
			var gotUid domain.UserId
			handler := auth.NeedAuth()(okHandler(&called, &gotUid))

			r := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
			tt.setup(r)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantCalled {
				assert.Equal(t, domain.UserId(42), gotUid)
				return
			}

			var body struct {
				Success   bool       `json:"success"`
				Message   string     `json:"message"`
				ExpiredAt *time.Time `json:"expiredAt"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMessage, body.Message)
			if tt.wantExpired {
				require.NotNil(t, body.ExpiredAt)
				assert.WithinDuration(t, time.Now().Add(-time.Minute), *body.ExpiredAt, 5*time.Second)
			} else {
				assert.Nil(t, body.ExpiredAt)
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	j := jwt.New("accessKey", "refreshKey", 15*time.Minute, 7*24*time.Hour)

	adminToken, err := j.NewAccessToken(1)
	require.NoError(t, err)

	newRequest := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
		r.Header.Set("Authorization", "Bearer "+adminToken)
		return r
	}

	t.Run("admin passes", func(t *testing.T) {
		storage := &mockUserStorage{
			UserByIdFunc: func(id domain.UserId) (domain.User, error) {
				return domain.User{Id: id, Role: domain.RoleAdmin}, nil
			},
		}
		called := false
		var gotUid domain.UserId
		handler := NewAuth(j, storage).AdminOnly()(okHandler(&called, &gotUid))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})

	t.Run("regular user is rejected", func(t *testing.T) {
		called := false
		var gotUid domain.UserId
		handler := NewAuth(j, &mockUserStorage{}).AdminOnly()(okHandler(&called, &gotUid))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest())

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Admin access required")
		assert.False(t, called)
	})

	t.Run("role change applies on the next request", func(t *testing.T) {
		// The role lives in storage, not in the token, so the same token
		// gains admin access as soon as the record changes.
		role := domain.RoleUser
		storage := &mockUserStorage{
			UserByIdFunc: func(id domain.UserId) (domain.User, error) {
				return domain.User{Id: id, Role: role}, nil
			},
		}
		called := false
		var gotUid domain.UserId
		handler := NewAuth(j, storage).AdminOnly()(okHandler(&called, &gotUid))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest())
		assert.Equal(t, http.StatusForbidden, w.Code)

		role = domain.RoleAdmin
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest())
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})

	t.Run("user missing from storage", func(t *testing.T) {
		storage := &mockUserStorage{
			UserByIdFunc: func(id domain.UserId) (domain.User, error) {
				return domain.User{}, assert.AnError
			},
		}
		called := false
		var gotUid domain.UserId
		handler := NewAuth(j, storage).AdminOnly()(okHandler(&called, &gotUid))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest())

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, called)
	})
}
