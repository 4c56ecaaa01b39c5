package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/keygate-dev/keygate/internal/domain"
	"github.com/keygate-dev/keygate/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockUserService struct {
	UsersFunc      func() ([]domain.User, error)
	UserFunc       func(id domain.UserId) (domain.User, error)
	DeleteFunc     func(id domain.UserId) error
	UpdateRoleFunc func(id domain.UserId, role domain.Role) (domain.User, error)
}

func (m *MockUserService) Users() ([]domain.User, error) {
	if m.UsersFunc != nil {
		return m.UsersFunc()
	}
	return []domain.User{testUser()}, nil
}

func (m *MockUserService) User(id domain.UserId) (domain.User, error) {
	if m.UserFunc != nil {
		return m.UserFunc(id)
	}
	return testUser(), nil
}

func (m *MockUserService) Delete(id domain.UserId) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	return nil
}

func (m *MockUserService) UpdateRole(id domain.UserId, role domain.Role) (domain.User, error) {
	if m.UpdateRoleFunc != nil {
		return m.UpdateRoleFunc(id, role)
	}
	u := testUser()
	u.Role = role
	return u, nil
}

func newAdminRouter(users *MockUserService) chi.Router {
	h := newTestHandler(&MockAuthService{}, users)
	r := chi.NewRouter()
	r.Get("/api/admin/users", h.Users)
	r.Get("/api/admin/users/{id}", h.User)
	r.Delete("/api/admin/users/{id}", h.DeleteUser)
	r.Patch("/api/admin/users/{id}/role", h.UpdateUserRole)
	return r
}

func TestUsersHandler(t *testing.T) {
	users := &MockUserService{
		UsersFunc: func() ([]domain.User, error) {
			a := testUser()
			b := testUser()
			b.Id = 2
			b.Email = "bob@example.com"
			b.PassHash = "$2a$10$other"
			return []domain.User{a, b}, nil
		},
	}
	router := newAdminRouter(users)

	r := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
		Users   []struct {
			Id    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Users, 2)
	assert.Equal(t, "bob@example.com", resp.Users[1].Email)
	assert.NotContains(t, w.Body.String(), "$2a$", "password hashes must never leak")
}

func TestUserHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		users := &MockUserService{
			UserFunc: func(id domain.UserId) (domain.User, error) {
				assert.Equal(t, domain.UserId(7), id)
				u := testUser()
				u.Id = 7
				return u, nil
			},
		}
		router := newAdminRouter(users)

		r := httptest.NewRequest(http.MethodGet, "/api/admin/users/7", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"id":7`)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := &MockUserService{
			UserFunc: func(id domain.UserId) (domain.User, error) {
				return domain.User{}, &errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
			},
		}
		router := newAdminRouter(users)

		r := httptest.NewRequest(http.MethodGet, "/api/admin/users/99", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "User not found")
	})

	t.Run("non-numeric id reads as unknown user", func(t *testing.T) {
		serviceCalled := false
		users := &MockUserService{
			UserFunc: func(id domain.UserId) (domain.User, error) {
				serviceCalled = true
				return testUser(), nil
			},
		}
		router := newAdminRouter(users)

		r := httptest.NewRequest(http.MethodGet, "/api/admin/users/abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "User not found")
		assert.False(t, serviceCalled)
	})
}

func TestDeleteUserHandler(t *testing.T) {
	var deletedId domain.UserId
	users := &MockUserService{
		DeleteFunc: func(id domain.UserId) error {
			deletedId = id
			return nil
		},
	}
	router := newAdminRouter(users)

	r := httptest.NewRequest(http.MethodDelete, "/api/admin/users/5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.UserId(5), deletedId)
	assert.Contains(t, w.Body.String(), "User deleted successfully")
}

func TestUpdateUserRoleHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		users := &MockUserService{
			UpdateRoleFunc: func(id domain.UserId, role domain.Role) (domain.User, error) {
				assert.Equal(t, domain.UserId(3), id)
				assert.Equal(t, domain.RoleAdmin, role)
				u := testUser()
				u.Id = 3
				u.Role = role
				return u, nil
			},
		}
		router := newAdminRouter(users)

		r := httptest.NewRequest(http.MethodPatch, "/api/admin/users/3/role", strings.NewReader(`{"role":"admin"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"role":"admin"`)
	})

	t.Run("unknown role fails validation", func(t *testing.T) {
		serviceCalled := false
		users := &MockUserService{
			UpdateRoleFunc: func(id domain.UserId, role domain.Role) (domain.User, error) {
				serviceCalled = true
				return testUser(), nil
			},
		}
		router := newAdminRouter(users)

		r := httptest.NewRequest(http.MethodPatch, "/api/admin/users/3/role", strings.NewReader(`{"role":"superadmin"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, serviceCalled)
	})
}
