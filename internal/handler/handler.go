package handler

import (
	"context"

	"github.com/keygate-dev/keygate/internal/config"
	"github.com/keygate-dev/keygate/internal/service"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	auth   service.AuthService
	users  service.UserService
	cfg    *config.Config
	health Pinger
}

func New(auth service.AuthService, users service.UserService, cfg *config.Config, health Pinger) *Handler {
	return &Handler{auth: auth, users: users, cfg: cfg, health: health}
}
