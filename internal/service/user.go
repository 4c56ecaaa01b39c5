package service

import (
	"net/http"

	"github.com/keygate-dev/keygate/internal/domain"
	"github.com/keygate-dev/keygate/internal/errors"
)

type UserService interface {
	Users() ([]domain.User, error)
	User(id domain.UserId) (domain.User, error)
	Delete(id domain.UserId) error
	UpdateRole(id domain.UserId, role domain.Role) (domain.User, error)
}

// Users implements the admin-only user management operations.
type Users struct {
	storage UserStorage
}

type UserStorage interface {
	Users() ([]domain.User, error)
	UserById(id domain.UserId) (domain.User, error)
	DeleteUser(id domain.UserId) error
	UpdateRole(id domain.UserId, role domain.Role) error
}

func NewUsers(storage UserStorage) *Users {
	return &Users{storage: storage}
}

func (u *Users) Users() ([]domain.User, error) {
	return u.storage.Users()
}

func (u *Users) User(id domain.UserId) (domain.User, error) {
	return u.storage.UserById(id)
}

func (u *Users) Delete(id domain.UserId) error {
	return u.storage.DeleteUser(id)
}

// UpdateRole changes a user's role and returns the updated record.
// The change is effective on the next role check: guards read the role
// from storage, not from the access token.
func (u *Users) UpdateRole(id domain.UserId, role domain.Role) (domain.User, error) {
	if !role.IsValid() {
		return domain.User{}, &errors.ErrorWithStatusCode{Message: "Role must be either 'user' or 'admin'", StatusCode: http.StatusBadRequest}
	}
	if err := u.storage.UpdateRole(id, role); err != nil {
		return domain.User{}, err
	}
	return u.storage.UserById(id)
}
